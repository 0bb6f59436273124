package cmd

import (
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"hreq/internal/config"
	"hreq/internal/errdef"
	"hreq/internal/format"
	httpclient "hreq/internal/http"
	"hreq/internal/logging"
	"hreq/internal/tui"
)

var (
	configFile string
	logLevel   string
	noColor    bool

	composeFlags requestFlags
)

var rootCmd = &cobra.Command{
	Use:   "hreq",
	Short: "Compose and send HTTP requests from the terminal",
	Long: heredoc.Doc(`
		hreq composes HTTP requests, sends them and keeps a per-method history.

		Without a subcommand it opens the interactive composer. Flags pre-populate
		its fields; fields left empty show examples.

		Examples:
		  hreq -u http://localhost:5000/ -m POST -t JSON -b '{"a": 1}'
		  hreq get http://localhost:5000/
		  hreq history
		  hreq history resend GET 1
	`),
	Args: cobra.NoArgs,
	Run:  runCompose,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default is <data_dir>/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	composeFlags.register(rootCmd, true)
}

// app is what every command needs after startup.
type app struct {
	viper  *viper.Viper
	cfg    config.Config
	log    *logging.Logger
	client *httpclient.Client
}

func (a *app) Close() {
	_ = a.log.Close()
}

// setup reads configuration and builds the logger and HTTP client.
// interactive keeps the console log writer off the terminal.
func setup(interactive bool) (*app, error) {
	v := config.New(configFile)
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		if _, err := logging.ParseLevel(logLevel); err != nil {
			return nil, err
		}
		cfg.Log.Level = logLevel
	}

	log, err := logging.Init(cfg.Log, interactive)
	if err != nil {
		return nil, err
	}
	format.SetColor(cfg.Color && !noColor)

	settings := httpclient.DefaultSettings
	settings.Timeout = cfg.Timeout
	settings.MaxResponseSize = cfg.MaxResponseSize
	client := httpclient.NewClientWithSettings(settings, nil, log.Logger)

	log.Debug().
		Str("config", cfg.File).
		Str("data_dir", cfg.DataDir).
		Dur("timeout", cfg.Timeout).
		Msg("startup")

	return &app{viper: v, cfg: cfg, log: log, client: client}, nil
}

// fail prints err without its code prefix and exits 1.
func fail(err error) {
	format.PrintError(os.Stderr, errdef.Detail(err))
	os.Exit(1)
}

func runCompose(cmd *cobra.Command, args []string) {
	if err := openComposer(); err != nil {
		fail(err)
	}
}

func openComposer() error {
	initial, err := composeFlags.record("", "")
	if err != nil {
		return err
	}

	a, err := setup(true)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := tui.Options{
		Client:    a.client,
		Logger:    a.log.Logger,
		Initial:   initial,
		Highlight: a.cfg.Highlight,
	}
	if err := tui.Run(opts, a.viper); err != nil {
		return fmt.Errorf("composer: %w", err)
	}
	return nil
}
