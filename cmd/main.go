// Command lpkeeper keeps concentrated liquidity positions near their target
// composition. Each configured pool is checked on an interval; when a
// position drifts out of tolerance it is withdrawn, swapped back to the
// target ratio and redeposited.
//
// Usage:
//
//	lpkeeper --config config.yaml
//	lpkeeper --pool <address> --target-base 5 --target-quote 750
//	lpkeeper --setup
//
// Environment variables (also read from .env):
//
//	LPKEEPER_KEYPAIR       base58 encoded 64-byte secret key
//	LPKEEPER_KEYPAIR_PATH  path to a solana-keygen JSON keypair
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/lpkeeper/config"
	"github.com/vadiminshakov/lpkeeper/internal"
	"github.com/vadiminshakov/lpkeeper/internal/metrics"
	"github.com/vadiminshakov/lpkeeper/internal/setup"
	"github.com/vadiminshakov/lpkeeper/internal/web"
)

func main() {
	rt, configs, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	if rt.Setup {
		path, err := setup.RunTUI()
		if err != nil {
			log.Fatal(err)
		}
		if configs, err = config.Load(path); err != nil {
			log.Fatal(err)
		}
	}

	logger, err := newLogger(rt.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	bots, err := internal.NewRebalanceBots(logger, configs, m)
	if err != nil {
		// already built bots are closed; Fatal would skip the deferred Sync
		logger.Error("failed to create rebalancers", zap.Error(err))
		stop()
		logger.Sync()
		os.Exit(1)
	}
	defer internal.CloseAll(bots)

	for _, bot := range bots {
		reportUnreconciled(logger, bot)
	}

	if rt.MetricsAddr != "" {
		srv := web.NewServer(logger, rt.MetricsAddr, m.Handler())
		for _, bot := range bots {
			srv.AddJournal(bot.Config.Pool.String(), bot.Journal())
		}
		go func() {
			logger.Info("serving metrics and journal", zap.String("addr", rt.MetricsAddr))
			if err := srv.Start(ctx); err != nil {
				logger.Error("http server failed", zap.Error(err))
			}
		}()
	}

	// a failing pool must not cancel cycles in flight on the others
	g := new(errgroup.Group)
	for _, bot := range bots {
		g.Go(func() error {
			if rt.Once {
				_, err := bot.RunOnce(ctx, logger)
				return err
			}
			return bot.Run(ctx, logger)
		})
		logger.Info("started", zap.String("pool", bot.Config.Pool.String()), zap.String("pair", bot.Config.Pair.String()))
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("rebalancer stopped", zap.Error(err))
		// os.Exit skips deferred calls
		stop()
		internal.CloseAll(bots)
		logger.Sync()
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func reportUnreconciled(logger *zap.Logger, bot *internal.RebalanceBot) {
	records, err := bot.Unreconciled()
	if err != nil {
		logger.Warn("failed to read rebalance journal", zap.String("pool", bot.Config.Pool.String()), zap.Error(err))
		return
	}
	for _, rec := range records {
		logger.Warn("unreconciled rebalance cycle, funds may be outside the pool",
			zap.String("pool", rec.Pool),
			zap.String("cycle", rec.CycleID),
			zap.String("stage", rec.Stage),
			zap.String("base", rec.Base.String()),
			zap.String("quote", rec.Quote.String()),
			zap.Time("time", rec.Time),
			zap.String("error", rec.Error))
	}
}
