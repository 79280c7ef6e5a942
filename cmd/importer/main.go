// Package main provides the Moodle import command. It reads one export
// payload, from a local file or from the configured Moodle endpoint,
// and imports it into the local LOM repository.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/oergraz/moodle-lom-go/internal/config"
	"github.com/oergraz/moodle-lom-go/internal/filecache"
	"github.com/oergraz/moodle-lom-go/internal/importer"
	"github.com/oergraz/moodle-lom-go/internal/logger"
	"github.com/oergraz/moodle-lom-go/internal/metrics"
	"github.com/oergraz/moodle-lom-go/internal/moodle"
	"github.com/oergraz/moodle-lom-go/internal/repository"
)

func main() {
	inputPath := flag.String("input", "", "path to a payload JSON file (overrides the fetch URL)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	log.Infof("starting moodle import")

	if err := run(cfg, log, *inputPath); err != nil {
		log.WithError(err).Errorf("import failed")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger, inputPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	payload, err := loadPayload(ctx, cfg, inputPath)
	if err != nil {
		return err
	}

	db, err := repository.Open(filepath.Join(cfg.DataDir, "repository.db"))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	log.WithField("path", db.Path()).Infof("repository opened")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	cache, err := filecache.New(cfg.HTTPTimeout, cfg.DownloadChunkSize, log, m)
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	repo := repository.NewService(db, log)
	report, err := importer.New(repo, cache, log, m).Run(ctx, payload, nil)
	logMetrics(registry, log)
	if err != nil {
		return err
	}

	fmt.Printf("created %d, edited %d, published %d, skipped %d, failed %d\n",
		report.Created, report.Edited, report.Published, report.Skipped, report.Failed)
	for _, pid := range report.FailedPIDs {
		fmt.Printf("failed: %s\n", pid)
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d records failed", report.Failed)
	}
	return nil
}

// logMetrics dumps the import counters collected during this run. The
// binary is one-shot, so there is no scrape endpoint to read them from.
func logMetrics(registry *prometheus.Registry, log *logger.Logger) {
	totals, err := metrics.Summarize(registry)
	if err != nil {
		log.WithError(err).Warnf("failed to gather metrics")
		return
	}
	names := make([]string, 0, len(totals))
	for name := range totals {
		if strings.HasPrefix(name, "moodle_") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	fields := make(map[string]any, len(names))
	for _, name := range names {
		fields[name] = totals[name]
	}
	log.WithFields(fields).Infof("import metrics")
}

func loadPayload(ctx context.Context, cfg *config.Config, inputPath string) (map[string]any, error) {
	if inputPath != "" {
		raw, err := os.ReadFile(inputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read payload file: %w", err)
		}
		payload := map[string]any{}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("failed to parse payload file: %w", err)
		}
		return payload, nil
	}

	if cfg.FetchURL == "" {
		return nil, fmt.Errorf("no -input file and no %s configured", config.EnvFetchURL)
	}
	return moodle.NewClient(cfg.FetchURL, cfg.HTTPTimeout).FetchPayload(ctx)
}
