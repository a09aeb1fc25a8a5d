package leantime

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/leanmobile/leanbridge/internal/apperr"
	"github.com/leanmobile/leanbridge/internal/normalize"
	"github.com/leanmobile/leanbridge/internal/upstream"
)

// Users lists all upstream accounts.
func (s *Service) Users(ctx context.Context, src upstream.CredentialSource) ([]User, error) {
	raw, err := s.caller.Call(ctx, src, "leantime.rpc.users.getAll", nil)
	if err != nil {
		return nil, err
	}
	return decodeUsers(raw), nil
}

// FindUserByEmail scans the user listing for an email match,
// case-insensitively. Returns nil when no account matches.
func (s *Service) FindUserByEmail(ctx context.Context, src upstream.CredentialSource, email string) (*User, error) {
	users, err := s.Users(ctx, src)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(email))
	for i := range users {
		if strings.ToLower(users[i].EmailAddress()) == needle {
			return &users[i], nil
		}
	}
	return nil, nil
}

// CurrentUser resolves the authenticated account. Older deployments
// answer users.getUser with empty params; newer ones only expose
// auth.currentUser, so the first miss falls through.
func (s *Service) CurrentUser(ctx context.Context, src upstream.CredentialSource) (*User, error) {
	for _, method := range []string{"leantime.rpc.users.getUser", "leantime.rpc.auth.currentUser"} {
		raw, err := s.caller.Call(ctx, src, method, map[string]any{})
		if err != nil {
			if apperr.IsMethodAmbiguity(err) {
				continue
			}
			return nil, err
		}
		var u User
		if json.Unmarshal(raw, &u) == nil && u.ID != "" {
			return &u, nil
		}
	}
	return nil, apperr.New(apperr.KindAuth, "users.currentUser", "upstream did not identify the session user")
}

func decodeUsers(raw json.RawMessage) []User {
	seq := normalize.ToSequence(raw)
	users := make([]User, 0, len(seq))
	for _, item := range seq {
		var u User
		if err := json.Unmarshal(item, &u); err != nil {
			continue
		}
		users = append(users, u)
	}
	return users
}
