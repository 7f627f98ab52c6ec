package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"todo-cli/internal/format"
	"todo-cli/internal/web"
)

func newWebCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the todo list as a web page",
		Long: strings.TrimSpace(`
Serve the todo list from a local HTTP server.

The page works without JavaScript (plain HTML forms). With JavaScript enabled it
receives live updates over server-sent events, so edits made from the CLI or TUI
show up immediately. Prometheus metrics are served at /metrics.
`),
		Example: strings.TrimSpace(`
todo web
todo web --addr 127.0.0.1:3336
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}

			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				listenAddr = app.cfg.Web.Addr
			}
			if listenAddr == "" {
				return writeErr(cmd, errors.New("web: missing --addr"))
			}

			srv, err := web.NewServer(web.ServerConfig{
				Session: sess,
				Metrics: app.metrics,
				Logger:  app.log,
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}

			actualAddr := ln.Addr().String()
			url := "http://" + actualAddr + "/"
			_ = writeOut(cmd, app, format.Envelope{Data: map[string]any{
				"addr":      actualAddr,
				"url":       url,
				"dir":       app.cfg.DataDir,
				"backend":   app.cfg.Backend,
				"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
			}})
			fmt.Fprintf(cmd.ErrOrStderr(), "todo web running at %s\n", url)

			ctx, stop := signal.NotifyContext(cmdContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serveUntilDone(ctx, app, ln, srv.Handler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Bind address (host:port or :port; default from config web.addr)")
	return cmd
}

// serveUntilDone runs the HTTP server and the autosave loop until ctx ends.
func serveUntilDone(ctx context.Context, app *App, ln net.Listener, h http.Handler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Request contexts derive from ctx so open event streams end on shutdown.
	hs := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	saved := make(chan struct{})
	go func() {
		defer close(saved)
		app.sess.Run(ctx, app.cfg.AutosaveInterval)
	}()

	errc := make(chan error, 1)
	go func() { errc <- hs.Serve(ln) }()

	select {
	case err := <-errc:
		cancel()
		<-saved
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer stop()
	err := hs.Shutdown(shutdownCtx)
	<-saved
	if err != nil {
		app.log.Warn("web shutdown", "err", err)
	}
	return nil
}
