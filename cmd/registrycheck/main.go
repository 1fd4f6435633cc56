package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/v0xg/registrycheck/internal/batch"
	"github.com/v0xg/registrycheck/internal/config"
	"github.com/v0xg/registrycheck/internal/export"
	"github.com/v0xg/registrycheck/internal/logging"
	"github.com/v0xg/registrycheck/internal/progress"
	"github.com/v0xg/registrycheck/internal/runner"
	"github.com/v0xg/registrycheck/internal/session"
	"github.com/v0xg/registrycheck/internal/triage"
	"github.com/v0xg/registrycheck/internal/web"
)

var (
	cfgFile string
	verbose bool

	input     string
	output    string
	format    string
	outDir    string
	noPreview bool
	provider  string
	model     string

	addr string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Printf("✗ %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Errors are returned, not printed;
// main prints them once.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "registrycheck",
		Short: "Check TAXISnet credentials and read registry data",
		Long: `registrycheck logs in to the TAXISnet registry-info page through a remote
browser, one credential at a time, and exports what it finds.

Input is one "username password" pair per line.

Example:
  registrycheck run -i accounts.txt
  registrycheck serve --addr :8501`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./registrycheck.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed progress")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Check a batch of credentials from a file or stdin",
		Args:  cobra.NoArgs,
		RunE:  runBatch,
	}
	runCmd.Flags().StringVarP(&input, "input", "i", "-", "Credentials file (- for stdin)")
	runCmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: taxis_results_<timestamp>.<format>)")
	runCmd.Flags().StringVar(&format, "format", "xlsx", "Output format: xlsx, csv")
	runCmd.Flags().StringVar(&outDir, "dir", ".", "Directory for the timestamped output file")
	runCmd.Flags().BoolVar(&noPreview, "no-preview", false, "Skip live-preview screenshots")
	runCmd.Flags().StringVar(&provider, "provider", "", "Triage provider for unrecognised pages: claude, openai")
	runCmd.Flags().StringVar(&model, "model", "", "Triage model override")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the browser UI",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr)")

	rootCmd.AddCommand(runCmd, serveCmd)
	return rootCmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if provider != "" {
		cfg.Triage.Provider = provider
	}
	if model != "" {
		cfg.Triage.Model = model
	}
	if noPreview {
		cfg.Preview.Enabled = false
	}

	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(cfg.Logger)
	defer func() { _ = logger.Sync() }()

	text, err := readInput(cmd.InOrStdin(), input)
	if err != nil {
		return fmt.Errorf("read input failed: %w", err)
	}

	r, err := newRunner(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logVerbose("Starting registrycheck")
	logVerbose("  Driver: %s", cfg.Browser.Driver)
	logVerbose("  Target: %s", cfg.Target.URL)

	rep := progress.Multi(progress.NewConsole(os.Stdout, verbose), progress.NewZapReporter(logger))
	res, err := batch.New(r, rep).RunText(ctx, text)
	if err != nil {
		return err
	}

	fmt.Println()
	export.RenderTable(os.Stdout, res.Records)

	path := output
	if path == "" {
		path, err = export.Save(outDir, f, res.Records, time.Now())
	} else {
		err = export.SaveAs(path, f, res.Records)
	}
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Printf("✓ Saved to %s\n", path)
	return nil
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Server.Addr
	}

	logger := logging.New(cfg.Logger)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A config error is shown in the UI instead of refusing to start.
	var attempter batch.Attempter
	cfgErr := cfg.Validate()
	if cfgErr == nil {
		r, err := newRunner(cfg, logger)
		if err != nil {
			cfgErr = err
		} else {
			attempter = r
		}
	}
	if cfgErr != nil {
		logger.Warn("Configuration error, batches disabled", zap.Error(cfgErr))
	}

	srv := web.New(ctx, attempter, web.Options{ConfigErr: cfgErr, Logger: logger})

	fmt.Printf("→ Serving on %s\n", addr)
	if err := srv.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server failed: %w", err)
	}
	srv.Wait()
	return nil
}

func newRunner(cfg *config.Config, logger *zap.Logger) (*runner.Runner, error) {
	driver, err := session.NewDriver(cfg.Browser)
	if err != nil {
		return nil, fmt.Errorf("browser driver init failed: %w", err)
	}

	var opts []runner.Option
	if cfg.Triage.Provider != "" {
		p, err := triage.NewProvider(cfg.Triage.Provider, cfg.Triage.Model)
		if err != nil {
			return nil, fmt.Errorf("triage provider init failed: %w", err)
		}
		logger.Info("Triage enabled", zap.String("provider", cfg.Triage.Provider))
		opts = append(opts, runner.WithTriage(p))
	}

	return runner.New(driver, runner.OptionsFrom(cfg), opts...), nil
}

func readInput(stdin io.Reader, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

func logVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}
