package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/fpang/post-image/internal/httpapi"
	"github.com/fpang/post-image/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	var (
		addr         string
		originSecret string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the image API, the theme directory and the upload directory",
		Long: `serve runs the image API locally. Besides /api/..., it serves the theme
directory under /theme/ and the upload directory under /uploads/, matching the
default --theme-url and --upload-url.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}

			emitter := metrics.Discard()
			if c.cfg.Metrics {
				emitter = metrics.NewEmitter(metrics.Namespace, cmd.ErrOrStderr())
			}
			api := httpapi.NewHandler(env.resolver, httpapi.Options{
				OriginVerifySecret: originSecret,
				Metrics:            emitter,
				Version:            commitHash,
			})

			files := afero.NewHttpFs(AppFs)
			mux := http.NewServeMux()
			mux.Handle("/api/", api)
			mux.Handle("/theme/", http.StripPrefix("/theme/", http.FileServer(files.Dir(c.cfg.ThemeDir))))
			mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(files.Dir(c.cfg.UploadDir))))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&originSecret, "origin-secret", "", "require this x-origin-verify header value")
	return cmd
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
