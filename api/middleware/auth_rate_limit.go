package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/freightdesk/freightdesk-backend/api/responses"
	"github.com/freightdesk/freightdesk-backend/pkg/config"
	pkgerrors "github.com/freightdesk/freightdesk-backend/pkg/errors"
	"github.com/freightdesk/freightdesk-backend/pkg/logger"
)

// maxLoginBody caps how much of a login body is buffered to find the email.
const maxLoginBody = 16 << 10

type windowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// loginLimit is one counter checked per login attempt.
type loginLimit struct {
	scope string
	key   string
	limit int
}

// LoginRateLimit throttles login attempts per client IP and per account email
// with fixed redis windows from cfg. Emails are counted by hash so addresses
// never reach redis. A zero window, or zero for both limits, disables it.
func LoginRateLimit(cfg config.AuthRateLimitConfig, store windowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || cfg.LoginWindow <= 0 || (cfg.LoginIPLimit <= 0 && cfg.LoginEmailLimit <= 0) {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var limits []loginLimit
			if cfg.LoginIPLimit > 0 {
				if ip := clientIP(r); ip != "" {
					limits = append(limits, loginLimit{scope: "ip", key: ip, limit: cfg.LoginIPLimit})
				}
			}
			if cfg.LoginEmailLimit > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxLoginBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				if email := loginEmail(body); email != "" {
					limits = append(limits, loginLimit{scope: "email", key: hashValue(email), limit: cfg.LoginEmailLimit})
				}
			}

			for _, l := range limits {
				allowed, count, err := store.FixedWindowAllow(ctx, "login:"+l.scope+":"+l.key, int64(l.limit), cfg.LoginWindow)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "login rate limit unavailable"))
					return
				}
				if !allowed {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"scope":    l.scope,
							"attempts": count,
							"limit":    l.limit,
						}), "auth.login.rate_limited")
					}
					w.Header().Set("Retry-After", strconv.Itoa(int(cfg.LoginWindow.Seconds())))
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many login attempts").
						WithDetails(map[string]string{"scope": l.scope}))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		first, _, _ := strings.Cut(header, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func loginEmail(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
