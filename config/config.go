package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/lpkeeper/internal/domain"
	"github.com/vadiminshakov/lpkeeper/internal/services/tracker"
	"gopkg.in/yaml.v3"
)

const (
	VenueSimulate = "simulate"

	defaultCheckInterval = time.Hour
	defaultJournalDir    = "./wal"
	defaultFeeBps        = 30
	defaultBaseDecimals  = 9
	defaultRPCRateLimit  = 5

	envKeypair     = "LPKEEPER_KEYPAIR"
	envKeypairPath = "LPKEEPER_KEYPAIR_PATH"
)

// Config describes one managed position.
type Config struct {
	Pool          domain.PoolID
	Pair          domain.Pair
	TargetBase    decimal.Decimal
	TargetQuote   decimal.Decimal
	Tolerance     decimal.Decimal
	CheckInterval time.Duration
	Venue         string
	KeypairPath   string
	// KeypairSecret is a base58 secret key, only ever read from the environment.
	KeypairSecret string
	JournalDir    string
	// RPCRateLimit caps venue calls per second.
	RPCRateLimit  float64
	Simulate      SimulateConfig
}

// SimulateConfig seeds the simulated venue.
type SimulateConfig struct {
	BaseReserve   decimal.Decimal
	QuoteReserve  decimal.Decimal
	PositionBase  decimal.Decimal
	PositionQuote decimal.Decimal
	FeeBps        int64
	BaseDecimals  int32
	StateDir      string
}

// Position builds the domain position for the config.
func (c Config) Position() (domain.Position, error) {
	return domain.NewPosition(c.Pool, c.Pair, c.TargetBase, c.TargetQuote)
}

// ConfigTmp is the yaml representation of Config. Decimals are strings to
// keep them exact.
type ConfigTmp struct {
	Pool          string        `yaml:"pool"`
	Pair          string        `yaml:"pair"`
	TargetBase    string        `yaml:"target_base"`
	TargetQuote   string        `yaml:"target_quote"`
	Tolerance     string        `yaml:"tolerance,omitempty"`
	CheckInterval time.Duration `yaml:"check_interval,omitempty"`
	Venue         string        `yaml:"venue,omitempty"`
	KeypairPath   string        `yaml:"keypair_path,omitempty"`
	JournalDir    string        `yaml:"journal_dir,omitempty"`
	RPCRateLimit  float64       `yaml:"rpc_rate_limit,omitempty"`
	Simulate      *SimulateTmp  `yaml:"simulate,omitempty"`
}

// SimulateTmp is the yaml representation of SimulateConfig.
type SimulateTmp struct {
	BaseReserve   string `yaml:"base_reserve,omitempty"`
	QuoteReserve  string `yaml:"quote_reserve,omitempty"`
	PositionBase  string `yaml:"position_base,omitempty"`
	PositionQuote string `yaml:"position_quote,omitempty"`
	FeeBps        *int64 `yaml:"fee_bps,omitempty"`
	BaseDecimals  *int32 `yaml:"base_decimals,omitempty"`
	StateDir      string `yaml:"state_dir,omitempty"`
}

// Runtime holds process level flags.
type Runtime struct {
	ConfigPath  string
	Once        bool
	Debug       bool
	Setup       bool
	MetricsAddr string
}

// Get parses command line flags, loads .env and returns the positions to manage.
func Get() (Runtime, []Config, error) {
	// .env is optional
	_ = godotenv.Load()

	return parse(flag.CommandLine, os.Args[1:])
}

func parse(fs *flag.FlagSet, args []string) (Runtime, []Config, error) {
	var rt Runtime
	fs.StringVar(&rt.ConfigPath, "config", "", "path to yaml config")
	fs.BoolVar(&rt.Once, "once", false, "run a single rebalance cycle per position and exit")
	fs.BoolVar(&rt.Debug, "debug", false, "development logging")
	fs.BoolVar(&rt.Setup, "setup", false, "run the interactive config wizard")
	fs.StringVar(&rt.MetricsAddr, "metrics-addr", "", "serve metrics and journal endpoints on this address, e.g. :9102")

	pool := fs.String("pool", "", "pool address (base58)")
	pair := fs.String("pair", "SOL_USDC", "asset pair, example: SOL_USDC")
	targetBase := fs.String("target-base", "", "target base amount, example: 5")
	targetQuote := fs.String("target-quote", "", "target quote amount, example: 750")
	tolerance := fs.String("tolerance", "", "accepted relative drift per asset in (0,1], default 0.10")
	interval := fs.Duration("interval", defaultCheckInterval, "range check interval")
	keypair := fs.String("keypair", "", "path to solana keypair file")
	journalDir := fs.String("journal-dir", defaultJournalDir, "rebalance journal directory")

	if err := fs.Parse(args); err != nil {
		return rt, nil, err
	}
	if rt.Setup {
		return rt, nil, nil
	}

	var (
		configs []Config
		err     error
	)
	if rt.ConfigPath != "" {
		configs, err = getYaml(rt.ConfigPath)
	} else {
		var c Config
		c, err = parseTmp(ConfigTmp{
			Pool:          *pool,
			Pair:          *pair,
			TargetBase:    *targetBase,
			TargetQuote:   *targetQuote,
			Tolerance:     *tolerance,
			CheckInterval: *interval,
			KeypairPath:   *keypair,
			JournalDir:    *journalDir,
		})
		configs = []Config{c}
	}
	if err != nil {
		return rt, nil, err
	}

	for i := range configs {
		applyEnvOverrides(&configs[i])
	}
	return rt, configs, nil
}

// Load reads positions from a yaml config, as written by the setup wizard.
func Load(path string) ([]Config, error) {
	configs, err := getYaml(path)
	if err != nil {
		return nil, err
	}
	for i := range configs {
		applyEnvOverrides(&configs[i])
	}
	return configs, nil
}

func getYaml(path string) ([]Config, error) {
	var configsTmp []ConfigTmp

	f, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(f, &configsTmp); err != nil {
		return nil, fmt.Errorf("parse yaml config %s: %w", path, err)
	}
	if len(configsTmp) == 0 {
		return nil, fmt.Errorf("yaml config %s has no positions", path)
	}

	configs := make([]Config, 0, len(configsTmp))
	seen := make(map[domain.PoolID]bool)
	for i, c := range configsTmp {
		conf, err := parseTmp(c)
		if err != nil {
			return nil, fmt.Errorf("position #%d: %w", i+1, err)
		}
		// one rebalancer per pool, concurrent cycles on a pool are unsafe
		if seen[conf.Pool] {
			return nil, fmt.Errorf("position #%d: pool %s is configured more than once", i+1, conf.Pool)
		}
		seen[conf.Pool] = true
		configs = append(configs, conf)
	}
	return configs, nil
}

func parseTmp(c ConfigTmp) (Config, error) {
	pool, err := domain.ParsePoolID(c.Pool)
	if err != nil {
		return Config{}, err
	}
	pair, err := domain.ParsePair(c.Pair)
	if err != nil {
		return Config{}, err
	}

	targetBase, err := parseDecimal("target_base", c.TargetBase)
	if err != nil {
		return Config{}, err
	}
	targetQuote, err := parseDecimal("target_quote", c.TargetQuote)
	if err != nil {
		return Config{}, err
	}

	tolerance := tracker.DefaultTolerance
	if c.Tolerance != "" {
		if tolerance, err = parseDecimal("tolerance", c.Tolerance); err != nil {
			return Config{}, err
		}
	}
	if err := tracker.ValidateTolerance(tolerance); err != nil {
		return Config{}, err
	}

	conf := Config{
		Pool:          pool,
		Pair:          pair,
		TargetBase:    targetBase,
		TargetQuote:   targetQuote,
		Tolerance:     tolerance,
		CheckInterval: c.CheckInterval,
		Venue:         c.Venue,
		KeypairPath:   c.KeypairPath,
		JournalDir:    c.JournalDir,
		RPCRateLimit:  c.RPCRateLimit,
	}
	if conf.CheckInterval <= 0 {
		conf.CheckInterval = defaultCheckInterval
	}
	if conf.Venue == "" {
		conf.Venue = VenueSimulate
	}
	if conf.Venue != VenueSimulate {
		return Config{}, &domain.ConfigurationError{Field: "venue", Reason: fmt.Sprintf("unsupported venue %q", conf.Venue)}
	}
	if conf.JournalDir == "" {
		conf.JournalDir = defaultJournalDir
	}
	if conf.RPCRateLimit < 0 {
		return Config{}, &domain.ConfigurationError{Field: "rpc_rate_limit", Reason: "must not be negative"}
	}
	if conf.RPCRateLimit == 0 {
		conf.RPCRateLimit = defaultRPCRateLimit
	}

	if _, err := conf.Position(); err != nil {
		return Config{}, err
	}

	sim, err := parseSimulate(c.Simulate, conf)
	if err != nil {
		return Config{}, err
	}
	conf.Simulate = sim

	return conf, nil
}

// parseSimulate fills simulate defaults: the position starts on target and
// reserves are 100x the targets.
func parseSimulate(s *SimulateTmp, conf Config) (SimulateConfig, error) {
	hundred := decimal.NewFromInt(100)
	sim := SimulateConfig{
		BaseReserve:   conf.TargetBase.Mul(hundred),
		QuoteReserve:  conf.TargetQuote.Mul(hundred),
		PositionBase:  conf.TargetBase,
		PositionQuote: conf.TargetQuote,
		FeeBps:        defaultFeeBps,
		BaseDecimals:  defaultBaseDecimals,
	}
	if s == nil {
		return sim, nil
	}

	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"simulate.base_reserve", s.BaseReserve, &sim.BaseReserve},
		{"simulate.quote_reserve", s.QuoteReserve, &sim.QuoteReserve},
		{"simulate.position_base", s.PositionBase, &sim.PositionBase},
		{"simulate.position_quote", s.PositionQuote, &sim.PositionQuote},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		v, err := parseDecimal(f.name, f.raw)
		if err != nil {
			return SimulateConfig{}, err
		}
		*f.dst = v
	}
	if s.FeeBps != nil {
		sim.FeeBps = *s.FeeBps
	}
	if s.BaseDecimals != nil {
		sim.BaseDecimals = *s.BaseDecimals
	}
	sim.StateDir = s.StateDir

	return sim, nil
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Decimal{}, &domain.ConfigurationError{Field: field, Reason: "is required"}
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, &domain.ConfigurationError{Field: field, Reason: fmt.Sprintf("must be a decimal, got %q", raw)}
	}
	return v, nil
}

func applyEnvOverrides(c *Config) {
	if v := os.Getenv(envKeypairPath); v != "" {
		c.KeypairPath = v
	}
	if v := os.Getenv(envKeypair); v != "" {
		c.KeypairSecret = v
	}
}
