package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/kozaktomas/classroll/internal/constants"
	"github.com/kozaktomas/classroll/internal/database"
)

const (
	sessionTTL    = constants.SessionMaxAgeHours * time.Hour
	purgeInterval = time.Hour
	devSecret     = "classroll-dev-secret-change-in-production"
)

// Session is an authenticated teacher login.
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionRepository is the durable side of the session store.
type SessionRepository interface {
	Save(ctx context.Context, id, username string, createdAt, expiresAt time.Time) error
	Get(ctx context.Context, sessionID string) (*database.StoredSession, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// SessionManager issues signed session cookies and resolves them back to
// sessions. Live sessions sit in an in-process cache; when a repository is
// configured it is written through and consulted on cache misses, so logins
// survive a restart.
type SessionManager struct {
	secret   []byte
	live     *cache.Cache
	repo     SessionRepository
	restores singleflight.Group

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewSessionManager starts the hourly purge loop; call Stop to end it.
// repo may be nil for memory-only sessions.
func NewSessionManager(secret string, repo SessionRepository) *SessionManager {
	if secret == "" {
		slog.Warn("no session secret configured, using the development default")
		secret = devSecret
	}
	sm := &SessionManager{
		secret: []byte(secret),
		// No janitor goroutine; purge drives expiry instead.
		live: cache.New(sessionTTL, 0),
		repo: repo,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go sm.purgeLoop()
	return sm
}

func (sm *SessionManager) purgeLoop() {
	defer close(sm.done)
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-sm.stop:
			return
		case <-t.C:
			sm.cleanup()
		}
	}
}

func (sm *SessionManager) cleanup() {
	sm.live.DeleteExpired()
	if sm.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := sm.repo.DeleteExpired(ctx)
	if err != nil {
		slog.Warn("purge persisted sessions", "error", err)
		return
	}
	if n > 0 {
		slog.Debug("purged persisted sessions", "count", n)
	}
}

func (sm *SessionManager) Stop() {
	sm.stopOnce.Do(func() {
		close(sm.stop)
		<-sm.done
	})
}

func (sm *SessionManager) remember(s *Session) {
	sm.live.Set(s.ID, s, time.Until(s.ExpiresAt))
}

// CreateSession mints a random 256-bit session ID for username.
func (sm *SessionManager) CreateSession(ctx context.Context, username string) (*Session, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	now := time.Now()
	s := &Session{
		ID:        base64.URLEncoding.EncodeToString(raw),
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(sessionTTL),
	}
	if sm.repo != nil {
		if err := sm.repo.Save(ctx, s.ID, s.Username, s.CreatedAt, s.ExpiresAt); err != nil {
			return nil, err
		}
	}
	sm.remember(s)
	return s, nil
}

// GetSession returns nil for unknown and expired sessions.
func (sm *SessionManager) GetSession(ctx context.Context, sessionID string) *Session {
	if sessionID == "" {
		return nil
	}
	if v, ok := sm.live.Get(sessionID); ok {
		s := v.(*Session)
		if s.expired(time.Now()) {
			sm.DeleteSession(ctx, sessionID)
			return nil
		}
		return s
	}
	if sm.repo == nil {
		return nil
	}

	// The UI fires several requests at once after a reload; restore once.
	v, err, _ := sm.restores.Do(sessionID, func() (any, error) {
		stored, err := sm.repo.Get(ctx, sessionID)
		if err != nil || stored == nil {
			return (*Session)(nil), err
		}
		s := &Session{ID: stored.ID, Username: stored.Username, CreatedAt: stored.CreatedAt, ExpiresAt: stored.ExpiresAt}
		if s.expired(time.Now()) {
			return (*Session)(nil), nil
		}
		sm.remember(s)
		return s, nil
	})
	if err != nil {
		slog.Warn("restore session", "error", err)
		return nil
	}
	return v.(*Session)
}

func (sm *SessionManager) DeleteSession(ctx context.Context, sessionID string) {
	sm.live.Delete(sessionID)
	if sm.repo == nil {
		return
	}
	if err := sm.repo.Delete(ctx, sessionID); err != nil {
		slog.Warn("delete persisted session", "error", err)
	}
}

// SetSessionCookie stores "<id>.<hmac>" so a tampered ID is rejected
// before any store lookup.
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, r *http.Request, s *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    s.ID + "." + sm.sign(s.ID),
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https"),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionTTL / time.Second),
	})
}

func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     constants.SessionCookieName,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// GetSessionFromRequest accepts the signed cookie first and falls back to an
// "Authorization: Bearer <id>" header used by scripts.
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) *Session {
	if c, err := r.Cookie(constants.SessionCookieName); err == nil {
		if id, mac, ok := strings.Cut(c.Value, "."); ok && sm.validMAC(id, mac) {
			if s := sm.GetSession(r.Context(), id); s != nil {
				return s
			}
		}
	}
	if id, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return sm.GetSession(r.Context(), strings.TrimSpace(id))
	}
	return nil
}

func (sm *SessionManager) sign(id string) string {
	mac := hmac.New(sha256.New, sm.secret)
	mac.Write([]byte(id))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}

func (sm *SessionManager) validMAC(id, mac string) bool {
	return hmac.Equal([]byte(mac), []byte(sm.sign(id)))
}

// SessionData is what clients see of a session; CreatedAt stays private.
type SessionData struct {
	SessionID string `json:"session_id"`
	Username  string `json:"username"`
	ExpiresAt string `json:"expires_at"`
}

func (s *Session) ToJSON() SessionData {
	return SessionData{
		SessionID: s.ID,
		Username:  s.Username,
		ExpiresAt: s.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.ToJSON())
}
