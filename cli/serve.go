package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/petal-labs/petalcall/server"
)

// NewServeCmd creates the "serve" subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dispatch HTTP server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	cmd.Flags().IntP("port", "p", 0, "Listen port (default: server.port from config)")
	cmd.Flags().String("host", "", "Listen host (default: server.host from config)")
	cmd.Flags().Duration("read-timeout", 0, "HTTP read timeout")
	cmd.Flags().Duration("write-timeout", 0, "HTTP write timeout")
	cmd.Flags().Int64("max-body", 0, "Max request body size in bytes")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	httpServer := newHTTPServer(cmd, env)

	// Signal handling
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(cmd.OutOrStdout(), "PetalCall listening on %s (%d tools)\n",
			httpServer.Addr, env.dispatcher.Registry().Len())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(cmd.OutOrStdout(), "Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return exitError(exitRuntime, "shutdown error: %v", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return exitError(exitRuntime, "server error: %v", err)
		}
		return nil
	}
}

// newHTTPServer applies flag overrides on top of the server section of the
// config.
func newHTTPServer(cmd *cobra.Command, env *runtimeEnv) *http.Server {
	serverCfg := env.cfg.Server
	flags := cmd.Flags()
	if flags.Changed("host") {
		serverCfg.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		serverCfg.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("read-timeout") {
		serverCfg.ReadTimeout, _ = flags.GetDuration("read-timeout")
	}
	if flags.Changed("write-timeout") {
		serverCfg.WriteTimeout, _ = flags.GetDuration("write-timeout")
	}
	if flags.Changed("max-body") {
		serverCfg.MaxBody, _ = flags.GetInt64("max-body")
	}

	srv := server.NewServer(server.ServerConfig{
		Dispatcher: env.dispatcher,
		MaxBody:    serverCfg.MaxBody,
		Logger:     env.logger,
	})
	return &http.Server{
		Addr:         net.JoinHostPort(serverCfg.Host, fmt.Sprintf("%d", serverCfg.Port)),
		Handler:      srv.Handler(),
		ReadTimeout:  serverCfg.ReadTimeout,
		WriteTimeout: serverCfg.WriteTimeout,
	}
}
