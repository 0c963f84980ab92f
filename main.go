package main

import (
	"call-replay/config"
	"call-replay/formatter"
	"call-replay/logging"
	"call-replay/metrics"
	"call-replay/models"
	"call-replay/parser"
	"call-replay/replay"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Define flags
	callsPath := flag.String("calls", "", "Call history CSV file (required)")
	activitiesPath := flag.String("activities", "", "Worker activity CSV file (optional)")
	configPath := flag.String("config", "", "YAML file overriding the default tunables")
	format := flag.String("format", "csv", "Output format: csv|json datasets, or text (csv datasets plus a run report on stdout)")
	outDir := flag.String("out", ".", "Directory receiving the training and test datasets")
	prefix := flag.String("prefix", "replay", "File name prefix of the datasets")
	tz := flag.String("tz", "", "Timezone of the input timestamps (e.g. CET, PT, Europe/Amsterdam)")
	metricsAddr := flag.String("metrics-addr", "", "Address to expose Prometheus metrics (e.g., :9090)")
	pushGateway := flag.String("push-url", "", "Pushgateway URL to push metrics to (e.g., http://localhost:9091)")
	wait := flag.Bool("wait", false, "Keep process running after completion to allow for metric scraping")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	logPretty := flag.Bool("log-pretty", false, "Human readable logs instead of JSON")

	// Parse command-line flags
	flag.Parse()

	log, err := logging.New(os.Stderr, *logLevel, *logPretty)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	// Start metrics server if address provided
	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, log)
	}

	// Validate required input flag
	if *callsPath == "" {
		fmt.Println("Error: -calls flag is required")
		fmt.Println("\nUsage:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Validate format enum
	validFormats := map[string]bool{"text": true, "json": true, "csv": true}
	if !validFormats[*format] {
		fmt.Printf("Error: format must be one of: text, json, csv (got: %s)\n", *format)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("loading config")
	}

	loc, err := parser.LoadLocation(*tz)
	if err != nil {
		log.Fatal().Err(err).Msg("resolving timezone")
	}

	calls, activities, err := load(context.Background(), *callsPath, *activitiesPath, loc, log)
	if err != nil {
		log.Fatal().Err(err).Msg("loading history")
	}

	services, inScope, rejected := selectCalls(calls, cfg)
	if len(services) == 0 {
		log.Fatal().Int("min_volume", cfg.Services.MinVolume).Msg("no service reaches the minimum volume")
	}
	log.Info().Int("calls", len(calls)).Int("invalid", rejected).Int("in_scope", len(inScope)).
		Strs("services", services).Msg("history filtered")

	result, err := replay.New(cfg, services, inScope, activities, log).Run()
	if err != nil {
		log.Fatal().Err(err).Msg("replay failed")
	}

	train, test := formatter.Split(result.Snapshots, cfg.Export.TrainingSplit, cfg.Export.ShuffleSeed)

	// Output based on format
	ext, render := datasetFormat(*format)
	for name, part := range map[string][]models.Snapshot{"training": train, "test": test} {
		path := filepath.Join(*outDir, fmt.Sprintf("%s_%s.%s", *prefix, name, ext))
		if err := os.WriteFile(path, []byte(render(part)), 0o644); err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("writing dataset")
		}
		log.Info().Str("path", path).Int("rows", len(part)).Msg("dataset written")
	}
	if *format == "text" {
		fmt.Print(formatter.FormatText(formatter.Report(result.RunID, result.Snapshots, len(train), len(test),
			result.Discarded, result.Abandoned, result.Summaries)))
	}

	// Handle metrics pushing or waiting
	if *pushGateway != "" {
		jobName := "call_replay"
		if err := push.New(*pushGateway, jobName).Grouping("run_id", result.RunID).Gatherer(metrics.Registry).Push(); err != nil {
			log.Error().Err(err).Str("url", *pushGateway).Msg("pushing to Pushgateway")
		} else {
			log.Info().Str("run_id", result.RunID).Msg("metrics pushed to Pushgateway")
		}
	}

	if *wait && *metricsAddr != "" {
		fmt.Println("\nProcess kept alive for metric scraping. Press Ctrl+C to exit.")
		// Wait for interrupt signal
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		fmt.Println("\nExiting...")
	} else if *metricsAddr != "" && *pushGateway == "" {
		// Small delay to allow final scrape if not waiting explicitly
		time.Sleep(100 * time.Millisecond)
	}
}

// selectCalls ranks services on the raw call volume, then keeps the valid
// calls of the selected services.
func selectCalls(calls []models.Call, cfg config.Config) (services []string, inScope []models.Call, rejected int) {
	services = parser.TopServices(calls, cfg.Services.TopN, cfg.Services.MinVolume)
	valid, rejected := parser.FilterValid(calls, cfg.Replay.MaxWaitSeconds)
	return services, parser.FilterServices(valid, services), rejected
}

// datasetFormat returns the file extension and renderer of the datasets.
// The text format writes csv datasets; its report goes to stdout.
func datasetFormat(format string) (string, func([]models.Snapshot) string) {
	if format == "json" {
		return "json", formatter.FormatJSON
	}
	return "csv", formatter.FormatCSV
}

// load reads the call and activity files concurrently.
func load(ctx context.Context, callsPath, activitiesPath string, loc *time.Location, log zerolog.Logger) ([]models.Call, []models.Activity, error) {
	var (
		calls      []models.Call
		activities []models.Activity
	)
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		f, err := os.Open(callsPath)
		if err != nil {
			return fmt.Errorf("opening calls: %w", err)
		}
		defer f.Close()

		var rowErrs []error
		calls, rowErrs, err = parser.ParseCalls(f, loc)
		if err != nil {
			return fmt.Errorf("parsing calls: %w", err)
		}
		logRowErrors(log, "calls", rowErrs)
		return nil
	})

	if activitiesPath != "" {
		g.Go(func() error {
			f, err := os.Open(activitiesPath)
			if err != nil {
				return fmt.Errorf("opening activities: %w", err)
			}
			defer f.Close()

			var rowErrs []error
			activities, rowErrs, err = parser.ParseActivities(f, loc)
			if err != nil {
				return fmt.Errorf("parsing activities: %w", err)
			}
			logRowErrors(log, "activities", rowErrs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return calls, activities, nil
}

func logRowErrors(log zerolog.Logger, file string, rowErrs []error) {
	if len(rowErrs) == 0 {
		return
	}
	for _, err := range rowErrs {
		log.Debug().Err(err).Str("file", file).Msg("row skipped")
	}
	log.Warn().Str("file", file).Int("rows", len(rowErrs)).Msg("malformed rows skipped")
}

func serveMetrics(addr string, log zerolog.Logger) {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	log.Info().Str("addr", addr).Msg("metrics server listening on /metrics")
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Error().Err(err).Msg("metrics server error")
	}
}
