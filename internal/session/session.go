// Package session stores bridged upstream sessions server-side. The
// browser only ever holds an opaque signed token; the upstream session
// cookie and the personal API key never leave the server.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for unknown, expired or revoked sessions.
var ErrNotFound = errors.New("session not found")

// Record is one bridged session.
type Record struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Firstname      string    `json:"firstname"`
	Lastname       string    `json:"lastname"`
	Username       string    `json:"username,omitempty"`
	Email          string    `json:"email"`
	PersonalKey    string    `json:"personalKey,omitempty"`
	UpstreamCookie string    `json:"upstreamCookie,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// HasPersonalKey reports whether this session carries its own API key.
func (r *Record) HasPersonalKey() bool { return r.PersonalKey != "" }

// Store persists session records keyed by Record.ID.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	Revoke(ctx context.Context, id string) error
	Close() error
}
