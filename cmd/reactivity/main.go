package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactivity/internal/config"
	rerrors "github.com/vango-dev/reactivity/internal/errors"
	"github.com/vango-dev/reactivity/pkg/reactivity"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app holds what every command needs after flags and config are resolved.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	readonly   string

	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		rerrors.Print(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "reactivity",
		Short: "Run and inspect fine-grained reactive state",
		Long: `reactivity runs scenario files against a dependency-tracking
reactive runtime.

A scenario declares some state, the effects, computed values and
watchers that read it, and the steps that change it. The runtime
records which effect read which key and re-runs exactly those
effects when the key changes.

Examples:
  reactivity run cart.yaml
  reactivity serve cart.yaml --addr :7070
  reactivity snapshot cart.yaml --dir .snapshots`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to reactivity.json (default: nearest one above the working directory)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: text or json")
	flags.StringVar(&a.readonly, "readonly", "", "Readonly mutation policy: warn, panic or silent")

	rootCmd.AddCommand(
		runCmd(a),
		serveCmd(a),
		snapshotCmd(a),
		restoreCmd(a),
		versionCmd(),
	)
	return rootCmd
}

// setup loads the config, applies flag overrides and builds the logger.
func (a *app) setup(logOut io.Writer) error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFile(a.configPath)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return err
	}

	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}
	if a.readonly != "" {
		cfg.Readonly = a.readonly
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = cfg.NewLogger(logOut)
	return nil
}

// engine creates an engine configured from the config and obs.
func (a *app) engine(obs ...reactivity.Observer) *reactivity.Engine {
	policy, _ := a.cfg.ReadonlyPolicy()
	opts := []reactivity.Option{
		reactivity.WithLogger(a.logger),
		reactivity.WithReadonlyPolicy(policy),
	}
	if len(obs) > 0 {
		opts = append(opts, reactivity.WithObserver(reactivity.Observers(obs...)))
	}
	return reactivity.New(opts...)
}

// scenarioArg validates the single scenario file argument.
func scenarioArg(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return rerrors.New("L401").WithSuggestion(fmt.Sprintf("reactivity %s <file>", cmd.Name()))
	}
	return nil
}
