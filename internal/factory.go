package internal

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/lpkeeper/config"
	"github.com/vadiminshakov/lpkeeper/internal/domain"
	"github.com/vadiminshakov/lpkeeper/internal/services/rebalancer"
	"github.com/vadiminshakov/lpkeeper/internal/services/venue"
	"github.com/vadiminshakov/lpkeeper/internal/storage/journal"
	"github.com/vadiminshakov/lpkeeper/internal/wallet"
)

// NewRebalanceBot wires the signer, venue, journal and metrics for one
// position. rec may be nil.
func NewRebalanceBot(l *zap.Logger, conf config.Config, rec rebalancer.Recorder) (*RebalanceBot, error) {
	if l == nil {
		l = zap.NewNop()
	}
	position, err := conf.Position()
	if err != nil {
		return nil, err
	}
	logger := l.With(zap.String("pool", conf.Pool.String()), zap.String("pair", conf.Pair.String()))

	signer, err := createSigner(logger, conf)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create signer")
	}

	sim, err := createVenue(logger, conf, signer)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create venue")
	}

	store, err := journal.NewWALStore(conf.JournalDir, conf.Pool)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open rebalance journal")
	}

	opts := []rebalancer.Option{rebalancer.WithJournal(store)}
	if rec != nil {
		opts = append(opts, rebalancer.WithRecorder(rec))
	}
	rb, err := rebalancer.New(logger, position, venue.NewRetrying(logger, venue.PerSecond(sim, conf.RPCRateLimit)), signer, conf.Tolerance, opts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &RebalanceBot{
		Config:     conf,
		rebalancer: rb,
		journal:    store,
		simulator:  sim,
	}, nil
}

// NewRebalanceBots builds a bot per config. If one fails, the bots built so
// far are closed before the error is returned.
func NewRebalanceBots(l *zap.Logger, configs []config.Config, rec rebalancer.Recorder) ([]*RebalanceBot, error) {
	return buildBots(configs, func(conf config.Config) (*RebalanceBot, error) {
		return NewRebalanceBot(l, conf, rec)
	})
}

func buildBots(configs []config.Config, build func(config.Config) (*RebalanceBot, error)) ([]*RebalanceBot, error) {
	bots := make([]*RebalanceBot, 0, len(configs))
	for _, conf := range configs {
		bot, err := build(conf)
		if err != nil {
			CloseAll(bots)
			return nil, errors.Wrapf(err, "failed to create rebalancer for pool %s", conf.Pool)
		}
		bots = append(bots, bot)
	}
	return bots, nil
}

// CloseAll closes every bot, ignoring errors.
func CloseAll(bots []*RebalanceBot) {
	for _, bot := range bots {
		_ = bot.Close()
	}
}

// createSigner prefers an inline secret, then a keypair file. The simulated
// venue falls back to an ephemeral key.
func createSigner(l *zap.Logger, conf config.Config) (*wallet.Keypair, error) {
	switch {
	case conf.KeypairSecret != "":
		return wallet.FromBase58(conf.KeypairSecret)
	case conf.KeypairPath != "":
		return wallet.LoadFile(conf.KeypairPath)
	case conf.Venue == config.VenueSimulate:
		kp, err := wallet.Generate()
		if err != nil {
			return nil, err
		}
		l.Info("no keypair configured, using ephemeral simulate key", zap.String("owner", kp.PublicKey()))
		return kp, nil
	default:
		return nil, &domain.ConfigurationError{Field: "keypair_path", Reason: "is required for venue " + conf.Venue}
	}
}

func createVenue(l *zap.Logger, conf config.Config, signer domain.Signer) (*venue.Simulator, error) {
	switch conf.Venue {
	case config.VenueSimulate:
		return venue.NewSimulator(l, venue.SimulatorConfig{
			Pool:          conf.Pool,
			Owner:         signer.PublicKey(),
			BaseDecimals:  conf.Simulate.BaseDecimals,
			FeeBps:        conf.Simulate.FeeBps,
			BaseReserve:   conf.Simulate.BaseReserve,
			QuoteReserve:  conf.Simulate.QuoteReserve,
			PositionBase:  conf.Simulate.PositionBase,
			PositionQuote: conf.Simulate.PositionQuote,
			StateDir:      conf.Simulate.StateDir,
		})
	default:
		return nil, &domain.ConfigurationError{Field: "venue", Reason: "unsupported venue " + conf.Venue}
	}
}
