package bootstrap

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ohfdesk/ohfdesk/internal/config"
	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"github.com/ohfdesk/ohfdesk/internal/modules/service"
)

// EnsureBootstrapAdmin promotes the profile matching root.adminEmail and drops
// its cached copy so the new role applies on the next request. rdb may be nil.
// Profiles created later are promoted on first login by the profile service.
func EnsureBootstrapAdmin(ctx context.Context, db *gorm.DB, rdb redis.Cmdable, cfg *config.Config, log *zap.Logger) error {
	email := strings.ToLower(strings.TrimSpace(cfg.Root.AdminEmail))
	if email == "" {
		return nil
	}

	var promoted []model.Profile
	res := db.WithContext(ctx).
		Model(&promoted).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}}}).
		Where("lower(email) = ? AND role <> ?", email, model.RoleAdmin).
		Update("role", model.RoleAdmin)
	if res.Error != nil {
		return res.Error
	}
	if len(promoted) == 0 {
		return nil
	}
	log.Sugar().Infow("bootstrap admin promoted", "email", email)

	if rdb == nil {
		return nil
	}
	for _, p := range promoted {
		if err := rdb.Del(ctx, service.ProfileCacheKey(p.ID)).Err(); err != nil {
			log.Warn("drop cached bootstrap admin", zap.String("profile_id", p.ID.String()), zap.Error(err))
		}
	}
	return nil
}

// ProfileCache returns the redis client for cache invalidation, or nil when
// redis is not reachable.
func ProfileCache(i *do.Injector, log *zap.Logger) redis.Cmdable {
	rdb, err := do.Invoke[*redis.Client](i)
	if err != nil {
		log.Warn("redis unavailable, cached profiles are not invalidated", zap.Error(err))
		return nil
	}
	return rdb
}
