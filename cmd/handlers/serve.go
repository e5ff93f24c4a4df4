package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/karthiknish/profici-comp-sub000/internal/config"
	"github.com/karthiknish/profici-comp-sub000/internal/llm"
	"github.com/karthiknish/profici-comp-sub000/internal/logger"
	"github.com/karthiknish/profici-comp-sub000/internal/server"
)

// NewServeCmd creates the serve command for starting the HTTP server
func NewServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the analysis HTTP API",
		Long: `Start the profici HTTP API.

The server provides:
  • POST /api/analyze        run an analysis job and return the report
  • GET  /api/reports/{id}   fetch a stored report
  • GET  /api/reports        list stored reports (?domain=&limit=)
  • GET  /health             health check

Reports are stored only when a database is configured. Provider credentials
are checked per request, so a missing key fails the request, not startup.

Examples:
  # Start server on default port 8080
  profici serve

  # Start on custom port
  profici serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port, host)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")

	return cmd
}

func runServe(port int, host string) error {
	cfg := config.Get()

	serverCfg := cfg.Server
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}

	if err := llm.ValidateCredentials(cfg.AI); err != nil {
		logger.Warn("Model provider credentials are not usable, analyze requests will fail", "error", err.Error())
	}

	db, err := getDatabase(cfg, false)
	if err != nil {
		return err
	}

	p, cleanup, err := buildPipeline(cfg, db)
	if err != nil {
		release(nil, databaseCloser(db))
		return err
	}
	defer release(cleanup, databaseCloser(db))

	var srv *server.Server
	if db != nil {
		srv = server.New(p, db.Reports(), db, serverCfg)
	} else {
		logger.Warn("No database configured, reports will not be stored")
		srv = server.New(p, nil, nil, serverCfg)
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on http://%s:%d", serverCfg.Host, serverCfg.Port))
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("Server shutdown initiated", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed, forcing close", err)
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info("Server stopped successfully")
	}

	return nil
}
