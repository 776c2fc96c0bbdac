package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/heapwalker/internal/webui"
	"github.com/heapwalker/pkg/pprof"
)

var (
	// Serve command flags
	listenAddr string
	pprofAddr  string
	withPprof  bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for browsing snapshots",
	Long: `Start an HTTP server exposing the snapshot catalog and field sessions.

Endpoints:
  GET    /api/snapshots            list snapshots
  POST   /api/snapshots            register a stored snapshot
  POST   /api/sessions             open the field list of an object
  GET    /api/sessions/{id}        show the current page of a session
  POST   /api/sessions/{id}/more   load the next page
  DELETE /api/sessions/{id}        close a session`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	binName := BinName()
	serveCmd.Example = `  # Start with the configured address
  ` + binName + ` serve -c config.yaml

  # Override the listen address
  ` + binName + ` serve --addr :9090 -v

  # Also expose runtime profiles
  ` + binName + ` serve --pprof --pprof-addr localhost:6060`

	serveCmd.Flags().StringVarP(&listenAddr, "addr", "a", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().BoolVar(&withPprof, "pprof", false, "Serve runtime profiles (overrides pprof.enabled)")
	serveCmd.Flags().StringVar(&pprofAddr, "pprof-addr", "", "Profiling listen address (overrides pprof.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	w, err := openWalker(ctx, true)
	if err != nil {
		return err
	}
	defer w.Close()

	serverCfg := cfg.Server
	if listenAddr != "" {
		serverCfg.Addr = listenAddr
	}
	server := webui.NewServer(w.svc, serverCfg, log)

	pprofCfg := cfg.Pprof
	if withPprof {
		pprofCfg.Enabled = true
	}
	if pprofAddr != "" {
		pprofCfg.Addr = pprofAddr
	}
	if pprofCfg.Enabled {
		if err := pprofCfg.Validate(); err != nil {
			return err
		}
		profiler := pprof.NewServer(pprofCfg, log)
		if err := profiler.Start(); err != nil {
			return err
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
			defer stopCancel()
			if err := profiler.Stop(stopCtx); err != nil {
				log.Warn("%v", err)
			}
		}()
	}

	w.svc.Sessions().Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		log.Info("Received signal %v, shutting down...", sig)
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("Context cancelled, shutting down...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Error during shutdown: %v", err)
	}
	log.Info("Server stopped")
	return nil
}
