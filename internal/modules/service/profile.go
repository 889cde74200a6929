package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ohfdesk/ohfdesk/internal/config"
	"github.com/ohfdesk/ohfdesk/internal/infra/authn"
	"github.com/ohfdesk/ohfdesk/internal/infra/cache"
	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"github.com/ohfdesk/ohfdesk/internal/modules/repo"
	"github.com/ohfdesk/ohfdesk/internal/pkg/paging"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const profileCachePrefix = "ohfdesk:profile:"

type ProfileService interface {
	// Resolve returns the profile of a verified identity, creating it on first sight.
	Resolve(ctx context.Context, id *authn.Identity) (*model.Profile, error)
	UpdateMe(ctx context.Context, actor *model.Profile, in UpdateProfileInput) (*model.Profile, error)
	List(ctx context.Context, in ListProfilesInput) (*ListProfilesOutput, error)
	UpdateRole(ctx context.Context, actor *model.Profile, id uuid.UUID, role string) (*model.Profile, error)
}

type profileService struct {
	r   repo.ProfileRepo
	rdb redis.Cmdable
	ttl time.Duration
	// adminEmail is promoted to admin when it signs in.
	adminEmail string
	log        *zap.Logger
}

func NewProfileService(r repo.ProfileRepo, rdb redis.Cmdable, cfg *config.Config, log *zap.Logger) ProfileService {
	return &profileService{
		r:          r,
		rdb:        rdb,
		ttl:        time.Duration(cfg.Supabase.ProfileCacheTTL) * time.Second,
		adminEmail: strings.ToLower(strings.TrimSpace(cfg.Root.AdminEmail)),
		log:        log,
	}
}

// ProfileCacheKey is the redis key holding the cached profile of id.
func ProfileCacheKey(id uuid.UUID) string {
	return profileCachePrefix + id.String()
}

func (s *profileService) cached() bool {
	return s.rdb != nil && s.ttl > 0
}

func (s *profileService) forget(ctx context.Context, id uuid.UUID) {
	if !s.cached() {
		return
	}
	if err := s.rdb.Del(ctx, ProfileCacheKey(id)).Err(); err != nil {
		s.log.Warn("drop cached profile", zap.String("profile_id", id.String()), zap.Error(err))
	}
}

func (s *profileService) Resolve(ctx context.Context, id *authn.Identity) (*model.Profile, error) {
	if id == nil || id.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing identity", ErrInvalidInput)
	}
	key := ProfileCacheKey(id.ID)
	if s.cached() {
		var p model.Profile
		err := cache.GetJSON(ctx, s.rdb, key, &p)
		if err == nil {
			return &p, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.log.Warn("read cached profile", zap.Error(err))
		}
	}

	role := id.Role
	if !model.ValidProfileRole(role) {
		role = model.RoleClient
	}
	p, err := s.r.GetOrCreate(ctx, &model.Profile{
		ID:              id.ID,
		Email:           strings.ToLower(id.Email),
		FullName:        id.FullName,
		Role:            role,
		DigestFrequency: model.DigestDaily,
	})
	if err != nil {
		return nil, err
	}
	if s.adminEmail != "" && p.Email == s.adminEmail && p.Role != model.RoleAdmin {
		p, err = s.r.Update(ctx, p.ID, map[string]any{"role": model.RoleAdmin})
		if err != nil {
			return nil, err
		}
		s.log.Info("bootstrap admin promoted", zap.String("profile_id", p.ID.String()))
	}

	if s.cached() {
		if err := cache.SetJSON(ctx, s.rdb, key, p, s.ttl); err != nil {
			s.log.Warn("write cached profile", zap.Error(err))
		}
	}
	return p, nil
}

type UpdateProfileInput struct {
	FullName        *string `json:"full_name"`
	DigestEnabled   *bool   `json:"digest_enabled"`
	DigestFrequency *string `json:"digest_frequency"`
}

func (s *profileService) UpdateMe(ctx context.Context, actor *model.Profile, in UpdateProfileInput) (*model.Profile, error) {
	fields := map[string]any{}
	if in.FullName != nil {
		fields["full_name"] = strings.TrimSpace(*in.FullName)
	}
	if in.DigestEnabled != nil {
		fields["digest_enabled"] = *in.DigestEnabled
	}
	if in.DigestFrequency != nil {
		f := *in.DigestFrequency
		if f != model.DigestDaily && f != model.DigestWeekly {
			return nil, fmt.Errorf("%w: digest frequency must be daily or weekly", ErrInvalidInput)
		}
		fields["digest_frequency"] = f
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	p, err := s.r.Update(ctx, actor.ID, fields)
	if err != nil {
		return nil, notFound(err)
	}
	s.forget(ctx, actor.ID)
	return p, nil
}

type ListProfilesInput struct {
	Role   string
	Limit  int
	Cursor string
}

type ListProfilesOutput struct {
	Items      []model.Profile `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
	HasMore    bool            `json:"has_more"`
}

func (s *profileService) List(ctx context.Context, in ListProfilesInput) (*ListProfilesOutput, error) {
	if in.Role != "" && !model.ValidProfileRole(in.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}
	if in.Limit <= 0 || in.Limit > 200 {
		in.Limit = 20
	}
	var (
		afterT  time.Time
		afterID uuid.UUID
		err     error
	)
	if in.Cursor != "" {
		afterT, afterID, err = paging.DecodeCursor(in.Cursor)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	ps, err := s.r.ListWithCursor(ctx, in.Role, afterT, afterID, in.Limit+1)
	if err != nil {
		return nil, err
	}
	out := &ListProfilesOutput{Items: ps}
	if len(ps) > in.Limit {
		out.HasMore = true
		out.Items = ps[:in.Limit]
		last := out.Items[len(out.Items)-1]
		out.NextCursor = paging.EncodeCursor(last.CreatedAt, last.ID)
	}
	return out, nil
}

func (s *profileService) UpdateRole(ctx context.Context, actor *model.Profile, id uuid.UUID, role string) (*model.Profile, error) {
	if !model.ValidProfileRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	if actor.Role != model.RoleAdmin {
		return nil, ErrForbidden
	}
	if actor.ID == id && role != model.RoleAdmin {
		return nil, fmt.Errorf("%w: admins cannot demote themselves", ErrConflict)
	}
	p, err := s.r.Update(ctx, id, map[string]any{"role": role})
	if err != nil {
		return nil, notFound(err)
	}
	s.forget(ctx, id)
	return p, nil
}
