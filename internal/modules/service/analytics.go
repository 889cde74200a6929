package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ohfdesk/ohfdesk/internal/config"
	"github.com/ohfdesk/ohfdesk/internal/infra/cache"
	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"github.com/ohfdesk/ohfdesk/internal/modules/repo"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const analyticsCachePrefix = "ohfdesk:analytics:"

const (
	resolvedWindow = 7 * 24 * time.Hour
	createdDays    = 14
)

type Dashboard struct {
	ByStatus           map[string]int64   `json:"by_status"`
	ByPriority         map[string]int64   `json:"by_priority"`
	OpenUrgent         int64              `json:"open_urgent"`
	ResolvedLast7Days  int64              `json:"resolved_last_7_days"`
	AvgResolutionHours float64            `json:"avg_resolution_hours"`
	Workload           []repo.WorkloadRow `json:"workload"`
	CreatedPerDay      []repo.DailyRow    `json:"created_per_day"`
	GeneratedAt        time.Time          `json:"generated_at"`
}

type AnalyticsService interface {
	Dashboard(ctx context.Context, actor *model.Profile, projectID *uuid.UUID) (*Dashboard, error)
}

type analyticsService struct {
	r   repo.AnalyticsRepo
	rdb redis.Cmdable
	ttl time.Duration
	log *zap.Logger
}

func NewAnalyticsService(r repo.AnalyticsRepo, rdb redis.Cmdable, cfg *config.Config, log *zap.Logger) AnalyticsService {
	return &analyticsService{r: r, rdb: rdb, ttl: cfg.AnalyticsCacheTTL(), log: log}
}

func analyticsCacheKey(projectID *uuid.UUID) string {
	if projectID == nil {
		return analyticsCachePrefix + "all"
	}
	return analyticsCachePrefix + projectID.String()
}

// zeroFilled returns counts for every key, including those with no rows.
func zeroFilled(keys []string, rows []repo.CountRow) map[string]int64 {
	out := make(map[string]int64, len(keys))
	for _, k := range keys {
		out[k] = 0
	}
	for _, r := range rows {
		out[r.Key] = r.Count
	}
	return out
}

func (s *analyticsService) Dashboard(ctx context.Context, actor *model.Profile, projectID *uuid.UUID) (*Dashboard, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}

	key := analyticsCacheKey(projectID)
	if s.rdb != nil && s.ttl > 0 {
		var cached Dashboard
		err := cache.GetJSON(ctx, s.rdb, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.log.Warn("read analytics cache", zap.Error(err))
		}
	}

	var (
		d          = &Dashboard{}
		byStatus   []repo.CountRow
		byPriority []repo.CountRow
		now        = time.Now().UTC()
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		byStatus, err = s.r.CountByStatus(gctx, projectID)
		return err
	})
	g.Go(func() (err error) {
		byPriority, err = s.r.CountByPriority(gctx, projectID)
		return err
	})
	g.Go(func() (err error) {
		d.OpenUrgent, err = s.r.CountOpenUrgent(gctx, projectID)
		return err
	})
	g.Go(func() (err error) {
		d.ResolvedLast7Days, err = s.r.CountResolvedSince(gctx, projectID, now.Add(-resolvedWindow))
		return err
	})
	g.Go(func() (err error) {
		d.AvgResolutionHours, err = s.r.AvgResolutionHours(gctx, projectID)
		return err
	})
	g.Go(func() (err error) {
		d.Workload, err = s.r.Workload(gctx, projectID)
		return err
	})
	g.Go(func() (err error) {
		since := now.Truncate(24*time.Hour).AddDate(0, 0, -(createdDays - 1))
		d.CreatedPerDay, err = s.r.CreatedPerDay(gctx, projectID, since)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.ByStatus = zeroFilled(model.Statuses, byStatus)
	d.ByPriority = zeroFilled(model.Priorities, byPriority)
	if d.Workload == nil {
		d.Workload = []repo.WorkloadRow{}
	}
	if d.CreatedPerDay == nil {
		d.CreatedPerDay = []repo.DailyRow{}
	}
	d.GeneratedAt = now

	if s.rdb != nil && s.ttl > 0 {
		if err := cache.SetJSON(ctx, s.rdb, key, d, s.ttl); err != nil {
			s.log.Warn("write analytics cache", zap.Error(err))
		}
	}
	return d, nil
}
