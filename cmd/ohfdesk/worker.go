package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/samber/do"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	mq "github.com/ohfdesk/ohfdesk/internal/infra/queue"
	"github.com/ohfdesk/ohfdesk/internal/modules/service"
)

var digestInterval time.Duration

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume notification jobs and send email",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		conn, err := do.Invoke[*amqp.Connection](a.inj)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer conn.Close()

		consumer, err := mq.NewConsumer(conn, a.cfg.RabbitMQ.Queue, a.cfg.RabbitMQ.Prefetch, a.log, a.cfg)
		if err != nil {
			return fmt.Errorf("declare consumer: %w", err)
		}
		defer consumer.Close()

		notify, err := do.Invoke[service.NotifyService](a.inj)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			a.log.Info("worker consuming", zap.String("queue", a.cfg.RabbitMQ.Queue))
			return consumer.Handle(ctx, jobHandler(notify, a.log))
		})
		if digestInterval > 0 {
			g.Go(func() error {
				runDigestLoop(ctx, notify, digestInterval, a.log)
				return nil
			})
		}

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		a.log.Info("worker stopped")
		return nil
	},
}

func init() {
	workerCmd.Flags().DurationVar(&digestInterval, "digest-interval", 0, "also send due digests on this interval (0 disables)")
}

// jobHandler decodes a queued job and hands it to the notify service.
// Undecodable bodies are dropped so they never loop through the queue.
func jobHandler(notify service.NotifyService, log *zap.Logger) func(context.Context, []byte) error {
	return func(ctx context.Context, body []byte) error {
		var job service.Job
		if err := sonic.Unmarshal(body, &job); err != nil {
			log.Error("drop malformed job", zap.Error(err), zap.ByteString("body", body))
			return nil
		}
		if job.Type == "" {
			log.Error("drop job without type", zap.ByteString("body", body))
			return nil
		}
		return notify.HandleJob(ctx, job)
	}
}

func runDigestLoop(ctx context.Context, notify service.NotifyService, every time.Duration, log *zap.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			report, err := notify.SendDigests(ctx, now)
			if err != nil {
				log.Error("scheduled digests", zap.Error(err))
				continue
			}
			log.Info("scheduled digests", zap.Int("due", report.Due), zap.Int("sent", report.Sent), zap.Int("skipped", report.Skipped))
		}
	}
}
