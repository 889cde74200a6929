package authn

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/ohfdesk/ohfdesk/internal/config"
	"github.com/supabase-community/auth-go"
	"github.com/supabase-community/auth-go/types"
)

var (
	ErrNotConfigured = errors.New("supabase auth is not configured")
	ErrInvalidToken  = errors.New("invalid access token")
)

// Identity is what a verified access token says about its user.
type Identity struct {
	ID       uuid.UUID
	Email    string
	FullName string
	// Role comes from app_metadata.role; empty when unset.
	Role string
}

type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Supabase verifies tokens by asking Supabase Auth for the token's user.
type Supabase struct {
	client auth.Client
}

func NewSupabase(cfg *config.Config) (*Supabase, error) {
	if cfg.Supabase.AnonKey == "" || (cfg.Supabase.ProjectRef == "" && cfg.Supabase.AuthURL == "") {
		return nil, ErrNotConfigured
	}
	client := auth.New(cfg.Supabase.ProjectRef, cfg.Supabase.AnonKey)
	if cfg.Supabase.AuthURL != "" {
		client = client.WithCustomAuthURL(cfg.Supabase.AuthURL)
	}
	return &Supabase{client: client}, nil
}

// Verify ignores ctx; the auth-go client has no context-aware calls.
func (s *Supabase) Verify(_ context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	resp, err := s.client.WithToken(token).GetUser()
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	return identityFromUser(resp.User), nil
}

func identityFromUser(u types.User) *Identity {
	return &Identity{
		ID:       u.ID,
		Email:    strings.ToLower(u.Email),
		FullName: stringMeta(u.UserMetadata, "full_name"),
		Role:     stringMeta(u.AppMetadata, "role"),
	}
}

func stringMeta(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
