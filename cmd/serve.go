package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/database/mariadb"
	"github.com/kozaktomas/classroll/internal/database/postgres"
	"github.com/kozaktomas/classroll/internal/inference"
	"github.com/kozaktomas/classroll/internal/metrics"
	"github.com/kozaktomas/classroll/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Classroll web server.
Teachers log in, pick one of their sections and upload a classroom photo;
the resulting attendance sheet is stored per teacher, section and date.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies (overrides WEB_SESSION_SECRET)")
}

// newRegistry creates the Prometheus registry with the process collectors
// and the attendance metrics.
func newRegistry() (*metrics.Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.NewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return m, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port := mustGetInt(cmd, "port"); port != 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
	if secret := mustGetString(cmd, "session-secret"); secret != "" {
		cfg.Web.SessionSecret = secret
	}
	if cfg.Web.SessionSecret == "" {
		fmt.Println("Warning: WEB_SESSION_SECRET is not set, using the development secret")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := connectDatabase(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.MariaDB.DSN != "" {
		mirror, err := mariadb.Initialize(context.Background(), cfg.MariaDB.DSN)
		if err != nil {
			return fmt.Errorf("failed to initialize MariaDB mirror: %w", err)
		}
		defer mirror.Close()
		fmt.Printf("Attendance mirror enabled (MariaDB)\n")
	}

	fmt.Printf("Loading %s inference backend...\n", cfg.Inference.Backend)
	backend, err := inference.NewBackend(cfg.Inference)
	if err != nil {
		return err
	}
	defer backend.Close()

	m, err := newRegistry()
	if err != nil {
		return err
	}

	svc, err := newService(cfg, newMatcher(cfg, backend, m), m)
	if err != nil {
		return err
	}

	users, err := database.GetUserWriter(context.Background())
	if err != nil {
		return err
	}
	sessionRepo := postgres.NewSessionRepository(pool)
	fmt.Printf("Session persistence enabled (PostgreSQL)\n")

	server := web.NewServer(cfg, svc, users, sessionRepo, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
		st := pool.Stats()
		slog.Info("database pool at shutdown", "open", st.OpenConnections, "in_use", st.InUse, "wait_count", st.WaitCount)
	}()

	fmt.Printf("Starting Classroll on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
