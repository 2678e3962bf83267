// Package lifecycle holds the allowed status transition tables for indents and trips.
package lifecycle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/freightdesk/freightdesk-backend/pkg/enums"
)

// Status is any string-backed status enum.
type Status interface {
	~string
	IsValid() bool
}

// Policy is an explicit from -> allowed targets table.
type Policy[S Status] struct {
	table      map[S]map[S]struct{}
	permissive bool
}

// NewPolicy builds a policy from the given table.
func NewPolicy[S Status](table map[S][]S) Policy[S] {
	p := Policy[S]{table: make(map[S]map[S]struct{}, len(table))}
	for from, targets := range table {
		set := make(map[S]struct{}, len(targets))
		for _, to := range targets {
			set[to] = struct{}{}
		}
		p.table[from] = set
	}
	return p
}

// Permissive returns a policy that allows every move between valid statuses.
func Permissive[S Status]() Policy[S] {
	return Policy[S]{permissive: true}
}

// Allows reports whether from -> to is permitted. Same-status moves are always allowed.
func (p Policy[S]) Allows(from, to S) bool {
	if !to.IsValid() {
		return false
	}
	if from == to || p.permissive {
		return true
	}
	_, ok := p.table[from][to]
	return ok
}

// Targets lists the statuses reachable from `from`, sorted.
func (p Policy[S]) Targets(from S) []S {
	out := make([]S, 0, len(p.table[from]))
	for to := range p.table[from] {
		out = append(out, to)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Check returns a *TransitionError when from -> to is not permitted.
func (p Policy[S]) Check(from, to S) error {
	if p.Allows(from, to) {
		return nil
	}
	allowed := make([]string, 0)
	for _, t := range p.Targets(from) {
		allowed = append(allowed, string(t))
	}
	return &TransitionError{From: string(from), To: string(to), Allowed: allowed}
}

// TransitionError describes a rejected transition.
type TransitionError struct {
	From    string
	To      string
	Allowed []string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s not allowed", e.From, e.To)
}

// ParseTable reads "from=to1|to2;from2=to3" using parse for each status name.
func ParseTable[S Status](raw string, parse func(string) (S, error)) (map[S][]S, error) {
	table := map[S][]S{}
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		fromRaw, targetsRaw, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("transition entry %q missing '='", entry)
		}
		from, err := parse(fromRaw)
		if err != nil {
			return nil, err
		}
		for _, toRaw := range strings.Split(targetsRaw, "|") {
			if strings.TrimSpace(toRaw) == "" {
				continue
			}
			to, err := parse(toRaw)
			if err != nil {
				return nil, err
			}
			table[from] = append(table[from], to)
		}
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("transition table is empty")
	}
	return table, nil
}

// DefaultIndentTable is the built-in indent transition graph.
func DefaultIndentTable() map[enums.IndentStatus][]enums.IndentStatus {
	return map[enums.IndentStatus][]enums.IndentStatus{
		enums.IndentStatusOpen: {
			enums.IndentStatusConfirmation, enums.IndentStatusVehiclePlaced, enums.IndentStatusPending,
			enums.IndentStatusCancelled, enums.IndentStatusFailed,
		},
		enums.IndentStatusConfirmation: {
			enums.IndentStatusOpen, enums.IndentStatusVehiclePlaced, enums.IndentStatusPending,
			enums.IndentStatusCancelled, enums.IndentStatusFailed,
		},
		enums.IndentStatusPending: {
			enums.IndentStatusConfirmation, enums.IndentStatusVehiclePlaced,
			enums.IndentStatusCancelled, enums.IndentStatusFailed,
		},
		enums.IndentStatusVehiclePlaced: {
			enums.IndentStatusCompleted, enums.IndentStatusCancelled, enums.IndentStatusFailed, enums.IndentStatusPending,
		},
	}
}

// DefaultTripTable is the built-in trip transition graph.
func DefaultTripTable() map[enums.TripStatus][]enums.TripStatus {
	return map[enums.TripStatus][]enums.TripStatus{
		enums.TripStatusCreated: {enums.TripStatusStarted, enums.TripStatusCancelled},
		enums.TripStatusStarted: {
			enums.TripStatusPaused, enums.TripStatusStopped, enums.TripStatusCompleted, enums.TripStatusCancelled,
		},
		enums.TripStatusPaused:  {enums.TripStatusStarted, enums.TripStatusStopped, enums.TripStatusCancelled},
		enums.TripStatusStopped: {enums.TripStatusStarted, enums.TripStatusCompleted, enums.TripStatusCancelled},
	}
}

// IndentPolicy resolves the indent policy from config values.
func IndentPolicy(permissive bool, override string) (Policy[enums.IndentStatus], error) {
	return resolve(permissive, override, enums.ParseIndentStatus, DefaultIndentTable)
}

// TripPolicy resolves the trip policy from config values.
func TripPolicy(permissive bool, override string) (Policy[enums.TripStatus], error) {
	return resolve(permissive, override, enums.ParseTripStatus, DefaultTripTable)
}

func resolve[S Status](permissive bool, override string, parse func(string) (S, error), defaults func() map[S][]S) (Policy[S], error) {
	if permissive {
		return Permissive[S](), nil
	}
	if strings.TrimSpace(override) == "" {
		return NewPolicy(defaults()), nil
	}
	table, err := ParseTable(override, parse)
	if err != nil {
		return Policy[S]{}, err
	}
	return NewPolicy(table), nil
}
