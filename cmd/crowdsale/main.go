// Command crowdsale operates a crowdsale vesting ledger stored in a local
// bbolt database.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bitfsorg/crowdsale-vesting-go/address"
	"github.com/bitfsorg/crowdsale-vesting-go/config"
	"github.com/bitfsorg/crowdsale-vesting-go/ledger"
	"github.com/bitfsorg/crowdsale-vesting-go/vesting"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

// options holds the persistent flags shared by every subcommand.
type options struct {
	configPath string
	dataDir    string
	schedule   string
	logLevel   string
	at         int64
}

// app is the opened state a subcommand works against.
type app struct {
	cfg      config.Config
	log      *zap.Logger
	store    *ledger.BoltStore
	ledger   *ledger.Ledger
	schedule *vesting.Schedule
	out      io.Writer
}

func (a *app) Close() error {
	_ = a.log.Sync()
	return a.store.Close()
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "crowdsale",
		Short:         "inspect and claim crowdsale vesting allocations",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (default <data-dir>/config)")
	pf.StringVarP(&opts.dataDir, "data-dir", "d", "", "data directory (overrides config)")
	pf.StringVar(&opts.schedule, "schedule", "", "YAML schedule file (overrides config)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (overrides config)")

	root.AddCommand(
		newInitCmd(opts),
		newUnlockedCmd(opts),
		newStatusCmd(opts),
		newBalanceCmd(opts),
		newScheduleCmd(opts),
		newClaimCmd(opts),
		newClaimAllCmd(opts),
		newReceiptsCmd(opts),
		newAdminCmd(opts, "lock"),
		newAdminCmd(opts, "unlock"),
		newPendingCmd(opts),
		newAckCmd(opts),
	)
	return root
}

// loadConfig resolves the config file and applies flag overrides.
func loadConfig(opts *options) (config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}

	path := opts.configPath
	if path == "" {
		path = config.ConfigPath(cfg.DataDir)
	}
	loaded, err := config.LoadConfig(path)
	switch {
	case err == nil:
		cfg = loaded
	case errors.Is(err, config.ErrConfigNotFound) && opts.configPath == "":
		// No config file in the data directory; defaults apply.
	default:
		return config.Config{}, err
	}

	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}
	if opts.schedule != "" {
		cfg.SchedulePath = opts.schedule
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// open loads config, schedule and ledger. A non-zero opts.at pins the ledger
// clock to that unix time.
func open(cmd *cobra.Command, opts *options) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger, err := config.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	schedule, err := config.LoadConfiguredSchedule(cfg)
	if err != nil {
		return nil, err
	}
	store, err := ledger.OpenBoltStore(cfg.LedgerPath())
	if err != nil {
		return nil, err
	}

	var clock clockwork.Clock = clockwork.NewRealClock()
	if opts.at != 0 {
		clock = clockwork.NewFakeClockAt(time.Unix(opts.at, 0))
	}
	l, err := ledger.New(schedule, store, store.Outbox(),
		ledger.WithClock(clock),
		ledger.WithLogger(logger.Named("ledger")),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &app{
		cfg:      cfg,
		log:      logger,
		store:    store,
		ledger:   l,
		schedule: schedule,
		out:      cmd.OutOrStdout(),
	}, nil
}

func parseWallet(s string) (address.Address, error) {
	w, err := address.Parse(s)
	if err != nil {
		return address.Zero, fmt.Errorf("wallet %q: %w", s, err)
	}
	return w, nil
}

func parseRound(s string) (vesting.RoundIndex, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("round %q: %w", s, err)
	}
	return vesting.RoundIndex(n), nil
}
