package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kozaktomas/classroll/internal/attendance"
	"github.com/kozaktomas/classroll/internal/classifier"
	"github.com/kozaktomas/classroll/internal/config"
	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/database/postgres"
	"github.com/kozaktomas/classroll/internal/inference"
	"github.com/kozaktomas/classroll/internal/metrics"
	"github.com/kozaktomas/classroll/internal/scanner"
)

// loadConfig reads and validates the environment configuration.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// connectDatabase connects to PostgreSQL and registers the repositories.
func connectDatabase(cfg *config.Config) (*postgres.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return pool, nil
}

// classifierOptions maps the configured classifier kind onto training options.
func classifierOptions(cfg *config.Config) classifier.Options {
	opts := classifier.DefaultOptions()
	opts.Kind = cfg.Attendance.Classifier
	return opts
}

// newMatcher wires the region scanner and embedder of a loaded backend.
func newMatcher(cfg *config.Config, backend *inference.Backend, m *metrics.Metrics) *attendance.Matcher {
	a := cfg.Attendance
	splitter := scanner.NewRandomSplitter(uint64(time.Now().UnixNano()), a.SplitJitter)
	sc := scanner.New(backend.Detector, splitter,
		scanner.WithPasses(a.Passes),
		scanner.WithConcurrency(a.ScanConcurrency),
		scanner.WithLogger(slog.Default()),
	)
	return attendance.NewMatcher(sc, backend.Embedder, a.FaceSize, m, slog.Default())
}

// newService builds the attendance service over the registered PostgreSQL
// repositories and the optional MariaDB mirror.
func newService(cfg *config.Config, matcher *attendance.Matcher, m *metrics.Metrics) (*attendance.Service, error) {
	ctx := context.Background()
	sections, err := database.GetSectionReader(ctx)
	if err != nil {
		return nil, err
	}
	sheets, err := database.GetAttendanceWriter(ctx)
	if err != nil {
		return nil, err
	}
	policy, err := attendance.NewVotePolicy(cfg.Attendance.Passes, cfg.Attendance.PresenceThreshold)
	if err != nil {
		return nil, err
	}
	return attendance.NewService(attendance.ServiceConfig{
		Sections:    sections,
		Sheets:      sheets,
		Matcher:     matcher,
		Cache:       classifier.NewCache(cfg.Attendance.CacheTTL),
		Policy:      policy,
		Classifier:  classifierOptions(cfg),
		ScanTimeout: cfg.Attendance.ScanTimeout,
		Metrics:     m,
		Logger:      slog.Default(),
	})
}
