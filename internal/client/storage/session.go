package storage

import (
	"context"
	"time"
)

// SessionStorage keeps catalog API sessions on the device, one per catalog URL,
// so switching remote.url between servers does not drop the other login.
type SessionStorage interface {
	// SaveSession stores or replaces the session of session.CatalogURL
	SaveSession(ctx context.Context, session *Session) error

	// GetSession returns ErrSessionNotFound if the catalog was never logged in to
	GetSession(ctx context.Context, catalogURL string) (*Session, error)

	// DeleteSession removes the session; a missing session is not an error
	DeleteSession(ctx context.Context, catalogURL string) error

	// ListSessions returns all stored sessions ordered by catalog URL
	ListSessions(ctx context.Context) ([]*Session, error)
}

// Session is an operator login to one catalog server
type Session struct {
	CatalogURL  string `json:"catalogUrl"`
	Username    string `json:"username"`
	AccessToken string `json:"accessToken"`
	IssuedAt    int64  `json:"issuedAt"`  // unix seconds
	ExpiresAt   int64  `json:"expiresAt"` // unix seconds, 0: без срока
}

// Expired reports whether the token is past its expiry at now
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt > 0 && now.Unix() >= s.ExpiresAt
}
