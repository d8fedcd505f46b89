package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"stockprob/internal/di"
	"stockprob/internal/domain/models"
	"stockprob/pkg/config"
	"stockprob/pkg/logger"
	"stockprob/pkg/server"
)

var (
	cfgFile string
	envFile string
	period  string
	rebuild bool
	outPath string
	format  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "stockprob",
		Short: "Next-day price movement probabilities for A-share stocks",
		Long: `stockprob screens the A-share universe and estimates, for each stock, how the
next session tends to open after a day in a given percentage-change bucket.

Examples:
  stockprob serve
  stockprob analyze 000001.SZ --period y2
  stockprob pct 000001.SZ 4.5
  stockprob all --period y2
  stockprob export --out data/export/probabilities.parquet`,
		SilenceUsage: true,
		RunE:         withApp(serve),
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config/config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "output format: table, json")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  withApp(serve),
	}

	filterCmd := &cobra.Command{
		Use:   "filter",
		Short: "Print the screened stock universe",
		Args:  cobra.NoArgs,
		RunE:  withApp(filter),
	}
	filterCmd.Flags().BoolVar(&rebuild, "rebuild", false, "ignore the cached universe and screen again")

	infoCmd := &cobra.Command{
		Use:   "info CODE",
		Short: "Print basic information for one stock",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(info),
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze CODE",
		Short: "Compute next-day probabilities for one stock",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(analyze),
	}
	analyzeCmd.Flags().StringVar(&period, "period", "", "only print this lookback period (m1, m3, m6, y1..y5)")

	pctCmd := &cobra.Command{
		Use:   "pct CODE PCT_CHG",
		Short: "Average stored probabilities for the bucket a percentage change falls in",
		Args:  cobra.ExactArgs(2),
		RunE:  withApp(pct),
	}

	allCmd := &cobra.Command{
		Use:   "all",
		Short: "Compute probabilities for the whole universe",
		Args:  cobra.NoArgs,
		RunE:  withApp(all),
	}
	allCmd.Flags().StringVar(&period, "period", "", "only keep this lookback period")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Flatten every stored table into a Parquet file",
		Args:  cobra.NoArgs,
		RunE:  withApp(export),
	}
	exportCmd.Flags().StringVar(&outPath, "out", "", "output file (default storage.export_path)")

	rootCmd.AddCommand(serveCmd, filterCmd, infoCmd, analyzeCmd, pctCmd, allCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type command func(ctx context.Context, app *server.App, args []string) error

// withApp loads configuration, wires the application and hands it to fn.
func withApp(fn command) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
		cfg, err := config.LoadWithEnv(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}

		app, err := di.InitializeApp(cfg)
		if err != nil {
			return fmt.Errorf("app initialization failed: %w", err)
		}
		if cfg.Tushare.Token == "" {
			app.Logger().Warn("TUSHARE_TOKEN is not set; provider calls will be rejected")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return fn(ctx, app, args)
	}
}

func checkPeriod(p string) error {
	if p == "" {
		return nil
	}
	if _, ok := models.LookupPeriod(models.Period(p)); !ok {
		return fmt.Errorf("unknown period %q", p)
	}
	return nil
}

func serve(ctx context.Context, app *server.App, _ []string) error {
	return app.Run(ctx)
}

func filter(ctx context.Context, app *server.App, _ []string) error {
	defer app.Close()

	var (
		stocks []models.Instrument
		err    error
	)
	if rebuild {
		stocks, err = app.Universe.Rebuild(ctx)
	} else {
		stocks, err = app.Universe.Stocks(ctx)
	}
	if err != nil {
		return fmt.Errorf("filtering stocks: %w", err)
	}
	return printUniverse(stocks)
}

func info(ctx context.Context, app *server.App, args []string) error {
	defer app.Close()

	si, err := app.Stocks.StockInfo(ctx, args[0])
	if err != nil {
		return err
	}
	return printInfo(si)
}

func analyze(ctx context.Context, app *server.App, args []string) error {
	defer app.Close()

	if err := checkPeriod(period); err != nil {
		return err
	}
	view, err := app.Stocks.StockProbability(ctx, args[0], models.Period(period))
	if err != nil {
		return err
	}
	return printView(args[0], view)
}

func pct(ctx context.Context, app *server.App, args []string) error {
	defer app.Close()

	v, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid PCT_CHG %q: %w", args[1], err)
	}
	res, err := app.Stocks.ProbabilityByPct(ctx, args[0], v)
	if err != nil {
		return err
	}
	return printPct(res)
}

func all(ctx context.Context, app *server.App, _ []string) error {
	defer app.Close()

	if err := checkPeriod(period); err != nil {
		return err
	}
	var bar *progressbar.ProgressBar
	progress := func(done, total int, code string) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("Analyzing"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]█[reset]",
					SaucerHead:    "[green]█[reset]",
					SaucerPadding: "░",
					BarStart:      "[",
					BarEnd:        "]",
				}),
			)
		}
		bar.Describe(code)
		_ = bar.Set(done)
	}

	res, err := app.Stocks.EachStockProbability(ctx, models.Period(period), progress)
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}
	if err != nil {
		return err
	}
	return printAll(res)
}

func export(_ context.Context, app *server.App, _ []string) error {
	defer app.Close()

	path := outPath
	if path == "" {
		path = app.Config().Storage.ExportPath
	}
	n, err := app.Exporter.Export(path)
	if err != nil {
		return err
	}
	app.Logger().Info("export finished", logger.String("path", path), logger.Int("rows", n))
	fmt.Printf("Exported %d rows to %s\n", n, path)
	return nil
}
