package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ohfdesk/ohfdesk/internal/config"
	"github.com/ohfdesk/ohfdesk/internal/infra/ai"
	"github.com/ohfdesk/ohfdesk/internal/infra/authn"
	"github.com/ohfdesk/ohfdesk/internal/infra/blob"
	"github.com/ohfdesk/ohfdesk/internal/infra/cache"
	"github.com/ohfdesk/ohfdesk/internal/infra/db"
	"github.com/ohfdesk/ohfdesk/internal/infra/logger"
	"github.com/ohfdesk/ohfdesk/internal/infra/mailer"
	mq "github.com/ohfdesk/ohfdesk/internal/infra/queue"
	"github.com/ohfdesk/ohfdesk/internal/infra/realtime"
	"github.com/ohfdesk/ohfdesk/internal/modules/handler"
	"github.com/ohfdesk/ohfdesk/internal/modules/repo"
	"github.com/ohfdesk/ohfdesk/internal/modules/service"
	"github.com/ohfdesk/ohfdesk/internal/router"
)

func BuildContainer() *do.Injector {
	inj := do.New()

	// config
	do.Provide(inj, func(i *do.Injector) (*config.Config, error) {
		return config.Load()
	})

	// logger
	do.Provide(inj, func(i *do.Injector) (*zap.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return logger.New(cfg.Log.Level)
	})

	// DB
	do.Provide(inj, func(i *do.Injector) (*gorm.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		d, err := db.New(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.Telemetry.Enabled {
			if err := db.RegisterOpenTelemetryPlugin(d); err != nil {
				log.Warn("gorm otel plugin", zap.Error(err))
			}
		}
		// [optional] auto migrate
		if cfg.Database.AutoMigrate {
			if err := db.Migrate(d); err != nil {
				return nil, err
			}
		}

		// promote the configured admin if the profile already exists
		if err := EnsureBootstrapAdmin(context.Background(), d, ProfileCache(i, log), cfg, log); err != nil {
			return nil, err
		}

		return d, nil
	})

	// Redis
	do.Provide(inj, func(i *do.Injector) (*redis.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		rdb, err := cache.New(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.Telemetry.Enabled {
			if err := cache.RegisterOpenTelemetryPlugin(rdb); err != nil {
				do.MustInvoke[*zap.Logger](i).Warn("redis otel plugin", zap.Error(err))
			}
		}
		return rdb, nil
	})

	// RabbitMQ DialFunc for connection and reconnection
	do.Provide(inj, func(i *do.Injector) (mq.DialFunc, error) {
		cfg := do.MustInvoke[*config.Config](i)

		dialFn := func() (*amqp.Connection, error) {
			useTLS := cfg.RabbitMQ.EnableTLS || strings.HasPrefix(cfg.RabbitMQ.URL, "amqps://")
			if useTLS {
				tlsConfig := &tls.Config{
					MinVersion: tls.VersionTLS12,
				}
				url := cfg.RabbitMQ.URL
				if strings.HasPrefix(url, "amqp://") {
					url = strings.Replace(url, "amqp://", "amqps://", 1)
				}
				return amqp.DialTLS(url, tlsConfig)
			}
			return amqp.Dial(cfg.RabbitMQ.URL)
		}

		return dialFn, nil
	})

	// RabbitMQ Connection
	do.Provide(inj, func(i *do.Injector) (*amqp.Connection, error) {
		dialFn := do.MustInvoke[mq.DialFunc](i)
		return dialFn()
	})

	// RabbitMQ Publisher
	do.Provide(inj, func(i *do.Injector) (*mq.Publisher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		conn, err := do.Invoke[*amqp.Connection](i)
		if err != nil {
			return nil, err
		}
		log := do.MustInvoke[*zap.Logger](i)
		dialFn := do.MustInvoke[mq.DialFunc](i)
		return mq.NewPublisher(conn, log, cfg, dialFn)
	})

	// S3
	do.Provide(inj, func(i *do.Injector) (*blob.S3Deps, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return blob.NewS3(context.Background(), cfg)
	})

	// Supabase auth
	do.Provide(inj, func(i *do.Injector) (authn.Verifier, error) {
		v, err := authn.NewSupabase(do.MustInvoke[*config.Config](i))
		if err != nil {
			return nil, err
		}
		return v, nil
	})

	// AI providers; missing keys degrade to a provider that reports ErrNotConfigured
	do.Provide(inj, func(i *do.Injector) (ai.Completer, error) {
		cfg := do.MustInvoke[*config.Config](i)
		c, err := ai.NewCompleter(context.Background(), cfg)
		if err != nil {
			do.MustInvoke[*zap.Logger](i).Warn("ai completer disabled", zap.Error(err))
			return ai.Unavailable{Reason: err}, nil
		}
		return c, nil
	})
	do.Provide(inj, func(i *do.Injector) (ai.Transcriber, error) {
		t, err := ai.NewTranscriber(do.MustInvoke[*config.Config](i))
		if err != nil {
			do.MustInvoke[*zap.Logger](i).Warn("ai transcriber disabled", zap.Error(err))
			return ai.Unavailable{Reason: err}, nil
		}
		return t, nil
	})

	// Mail
	do.Provide(inj, func(i *do.Injector) (mailer.Mailer, error) {
		return mailer.New(do.MustInvoke[*config.Config](i), do.MustInvoke[*zap.Logger](i))
	})

	// Realtime
	do.Provide(inj, func(i *do.Injector) (*realtime.Hub, error) {
		return realtime.NewHub(do.MustInvoke[*redis.Client](i), do.MustInvoke[*zap.Logger](i)), nil
	})

	// Repo
	do.Provide(inj, func(i *do.Injector) (repo.TicketRepo, error) {
		return repo.NewTicketRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.ActivityRepo, error) {
		return repo.NewActivityRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.ProjectRepo, error) {
		return repo.NewProjectRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.ProfileRepo, error) {
		return repo.NewProfileRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.TemplateRepo, error) {
		return repo.NewTemplateRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.AnalyticsRepo, error) {
		return repo.NewAnalyticsRepo(do.MustInvoke[*gorm.DB](i)), nil
	})

	// Service
	do.Provide(inj, func(i *do.Injector) (service.Notifier, error) {
		log := do.MustInvoke[*zap.Logger](i)
		pub, err := do.Invoke[*mq.Publisher](i)
		if err != nil {
			// the API keeps serving; email jobs are logged and dropped
			log.Warn("rabbitmq unavailable, notification jobs disabled", zap.Error(err))
			pub = nil
		}
		return service.NewNotifier(
			do.MustInvoke[*realtime.Hub](i),
			pub,
			do.MustInvoke[*redis.Client](i),
			do.MustInvoke[*config.Config](i),
			log,
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.TicketService, error) {
		return service.NewTicketService(
			do.MustInvoke[repo.TicketRepo](i),
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[ai.Completer](i),
			do.MustInvoke[ai.Transcriber](i),
			do.MustInvoke[*blob.S3Deps](i),
			do.MustInvoke[service.Notifier](i),
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.ActivityService, error) {
		return service.NewActivityService(
			do.MustInvoke[repo.ActivityRepo](i),
			do.MustInvoke[service.TicketService](i),
			do.MustInvoke[ai.Completer](i),
			do.MustInvoke[*blob.S3Deps](i),
			do.MustInvoke[service.Notifier](i),
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.ChatService, error) {
		return service.NewChatService(
			do.MustInvoke[ai.Completer](i),
			do.MustInvoke[ai.Transcriber](i),
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.ProjectService, error) {
		return service.NewProjectService(
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[service.Notifier](i),
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.TemplateService, error) {
		return service.NewTemplateService(do.MustInvoke[repo.TemplateRepo](i), do.MustInvoke[*zap.Logger](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.AnalyticsService, error) {
		return service.NewAnalyticsService(
			do.MustInvoke[repo.AnalyticsRepo](i),
			do.MustInvoke[*redis.Client](i),
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.ProfileService, error) {
		return service.NewProfileService(
			do.MustInvoke[repo.ProfileRepo](i),
			do.MustInvoke[*redis.Client](i),
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.NotifyService, error) {
		return service.NewNotifyService(
			do.MustInvoke[repo.TicketRepo](i),
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[repo.ProfileRepo](i),
			do.MustInvoke[mailer.Mailer](i),
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	// Handler
	do.Provide(inj, func(i *do.Injector) (*handler.ProfileHandler, error) {
		return handler.NewProfileHandler(
			do.MustInvoke[service.ProfileService](i),
			do.MustInvoke[service.Notifier](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.TicketHandler, error) {
		return handler.NewTicketHandler(do.MustInvoke[service.TicketService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.ActivityHandler, error) {
		return handler.NewActivityHandler(do.MustInvoke[service.ActivityService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.AIHandler, error) {
		return handler.NewAIHandler(do.MustInvoke[service.ChatService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.ProjectHandler, error) {
		return handler.NewProjectHandler(do.MustInvoke[service.ProjectService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.TemplateHandler, error) {
		return handler.NewTemplateHandler(do.MustInvoke[service.TemplateService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.AnalyticsHandler, error) {
		return handler.NewAnalyticsHandler(do.MustInvoke[service.AnalyticsService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.RealtimeHandler, error) {
		return handler.NewRealtimeHandler(
			do.MustInvoke[*realtime.Hub](i),
			do.MustInvoke[service.TicketService](i),
		), nil
	})

	// Router
	do.Provide(inj, func(i *do.Injector) (*gin.Engine, error) {
		return router.NewRouter(router.RouterDeps{
			Config:           do.MustInvoke[*config.Config](i),
			Log:              do.MustInvoke[*zap.Logger](i),
			Verifier:         do.MustInvoke[authn.Verifier](i),
			Profiles:         do.MustInvoke[service.ProfileService](i),
			ProfileHandler:   do.MustInvoke[*handler.ProfileHandler](i),
			TicketHandler:    do.MustInvoke[*handler.TicketHandler](i),
			ActivityHandler:  do.MustInvoke[*handler.ActivityHandler](i),
			AIHandler:        do.MustInvoke[*handler.AIHandler](i),
			ProjectHandler:   do.MustInvoke[*handler.ProjectHandler](i),
			TemplateHandler:  do.MustInvoke[*handler.TemplateHandler](i),
			AnalyticsHandler: do.MustInvoke[*handler.AnalyticsHandler](i),
			RealtimeHandler:  do.MustInvoke[*handler.RealtimeHandler](i),
		}), nil
	})

	return inj
}
