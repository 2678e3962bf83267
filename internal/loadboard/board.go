package loadboard

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/freightdesk/freightdesk-backend/pkg/db/models"
)

// tombstoneTTL bounds how long a removed indent's last version is remembered.
// Feed messages arriving later than this are not expected.
const tombstoneTTL = 10 * time.Minute

type tombstone struct {
	version   time.Time
	removedAt time.Time
}

// Board is the in-memory list of indents shown on the load board, newest first.
type Board struct {
	mu      sync.RWMutex
	cards   map[uuid.UUID]IndentCard
	removed map[uuid.UUID]tombstone
	order   []IndentCard
	now     func() time.Time
}

func NewBoard() *Board {
	return &Board{
		cards:   map[uuid.UUID]IndentCard{},
		removed: map[uuid.UUID]tombstone{},
		now:     time.Now,
	}
}

// Load replaces the board contents. Indents that are not board statuses are skipped.
func (b *Board) Load(indents []models.Indent) {
	cards := make(map[uuid.UUID]IndentCard, len(indents))
	for i := range indents {
		if indents[i].Status.OnLoadBoard() {
			cards[indents[i].ID] = CardFromIndent(&indents[i])
		}
	}
	b.mu.Lock()
	b.cards = cards
	b.removed = map[uuid.UUID]tombstone{}
	b.resort()
	b.mu.Unlock()
}

// Apply folds one change into the board and reports whether the visible set changed.
// An update that moves the indent off the board is treated as a delete. Changes
// older than the version already seen, on the board or recently removed, are ignored.
func (b *Board) Apply(c Change) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.pruneRemoved(now)

	id := c.Indent.ID
	current, present := b.cards[id]
	if present && current.UpdatedAt.After(c.Indent.UpdatedAt) {
		return false
	}
	if gone, ok := b.removed[id]; ok && !c.Indent.UpdatedAt.After(gone.version) {
		return false
	}

	if c.Op == OpDelete || !c.Indent.Status.OnLoadBoard() {
		version := c.Indent.UpdatedAt
		if version.IsZero() && present {
			version = current.UpdatedAt
		}
		b.removed[id] = tombstone{version: version, removedAt: now}
		if !present {
			return false
		}
		delete(b.cards, id)
	} else {
		delete(b.removed, id)
		b.cards[id] = c.Indent
	}
	b.resort()
	return true
}

func (b *Board) pruneRemoved(now time.Time) {
	for id, gone := range b.removed {
		if now.Sub(gone.removedAt) > tombstoneTTL {
			delete(b.removed, id)
		}
	}
}

// Snapshot returns a copy of the board in display order.
func (b *Board) Snapshot() []IndentCard {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]IndentCard, len(b.order))
	copy(out, b.order)
	return out
}

func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.cards)
}

// resort rebuilds order by created_at DESC, id DESC. Callers hold mu.
func (b *Board) resort() {
	order := make([]IndentCard, 0, len(b.cards))
	for _, card := range b.cards {
		order = append(order, card)
	}
	sort.Slice(order, func(i, j int) bool {
		if !order[i].CreatedAt.Equal(order[j].CreatedAt) {
			return order[i].CreatedAt.After(order[j].CreatedAt)
		}
		return order[i].ID.String() > order[j].ID.String()
	})
	b.order = order
}
