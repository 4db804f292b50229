// cmd/integrity-audit/main.go
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"storefront/internal/app"
	"storefront/internal/pkg/bootstrap"
	"storefront/internal/pkg/database"
	"storefront/internal/pkg/logger"
	"storefront/internal/service/order/interfaces"
	"storefront/internal/zookeeper"
)

const serviceName = "integrity-audit"

var (
	follow  = flag.Bool("follow", false, "keep running: re-verify placed orders from the event stream and log alerts")
	batch   = flag.Int("batch", 500, "orders loaded per page")
	workers = flag.Int("workers", 8, "orders verified in parallel")
)

func main() {
	flag.Parse()
	cfg, shutdownTracer := bootstrap.Init(serviceName)
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer func() { _ = shutdownTracer(context.Background()) }()

	db, err := database.Open(cfg.Infra.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	c, err := app.New(ctx, cfg, db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build services")
	}
	defer c.Close()

	if *follow {
		if err := runFollow(ctx, c); err != nil {
			log.Error().Err(err).Msg("follow mode exited with error")
			os.Exit(1)
		}
		return
	}

	if cfg.Infra.Zookeeper.Servers != "" {
		conn, err := zookeeper.Dial(cfg.Infra.Zookeeper.Servers, cfg.Infra.Zookeeper.SessionTimeout)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to zookeeper")
		}
		defer conn.Close()
		lock, err := zookeeper.NewDistributedLock(conn, serviceName)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to prepare audit lock")
		}
		held, err := lock.TryLock(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to acquire audit lock")
		}
		if !held {
			log.Info().Msg("another audit is already running, exiting")
			return
		}
		defer func() { _ = lock.Unlock() }()
	}

	res, err := app.Sweep(ctx, c.Orders, *batch, *workers)
	log.Info().Int64("checked", res.Checked).Int64("violations", res.Violations).Msg("integrity audit finished")
	if err != nil {
		log.Error().Err(err).Msg("integrity audit aborted")
		os.Exit(1)
	}
	if res.Violations > 0 {
		os.Exit(2)
	}
}

// runFollow 同时运行订单事件复核和告警监听，直到收到退出信号。
func runFollow(ctx context.Context, c *app.Container) error {
	k := c.Config.Infra.Kafka
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return interfaces.NewOrderEventConsumer(c.Reader(k.OrderTopic), c.Orders).Run(gctx)
	})
	g.Go(func() error {
		return interfaces.NewAlertListener(c.Reader(k.AlertTopic)).Run(gctx)
	})
	return g.Wait()
}
