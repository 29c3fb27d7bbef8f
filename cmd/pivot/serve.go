package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"

	"github.com/recera/pivot/internal/cache"
	"github.com/recera/pivot/internal/watch"
	"github.com/recera/pivot/pkg/chart"
	"github.com/recera/pivot/pkg/highlight"
	"github.com/recera/pivot/pkg/live"
	"github.com/recera/pivot/pkg/query"
	"github.com/recera/pivot/pkg/reactive"
)

func newServeCommand(g *globals) *cobra.Command {
	var addr string
	var allowAnyOrigin bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Stream charts to remote clients",
		Long: `Starts the live server. Each websocket session on /live gets its own chart,
highlight and filter; clients send pointer events and receive rendered frames.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.LiveAddr
			}
			views, err := cfg.ChartViews()
			if err != nil {
				return err
			}
			exec, err := openExecutor(cfg)
			if err != nil {
				return err
			}
			defer exec.Close()

			source, results := cached(cfg, exec)
			liveServer := newLiveServer(views, source, g.verbose || cfg.LiveVerbose)
			origins := cfg.AllowedOrigins
			if allowAnyOrigin {
				origins = []string{"*"}
			}
			if len(origins) > 0 {
				liveServer.SetCheckOrigin(originChecker(origins))
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.Watch {
				w, err := watch.New(cfg.Database, watch.DefaultDelay)
				if err != nil {
					log.Printf("[Serve] Not watching %s: %v", cfg.Database, err)
				} else {
					defer w.Close()
					go func() {
						for {
							select {
							case <-w.Changes():
								log.Printf("[Serve] %s changed, refreshing %d sessions", cfg.Database, liveServer.SessionCount())
								if results != nil {
									results.Clear()
								}
								liveServer.Refresh(ctx)
							case <-ctx.Done():
								return
							}
						}
					}()
				}
			}

			return serve(ctx, addr, newRouter(liveServer, views, results, origins, g.verbose), liveServer)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (defaults to live_addr)")
	cmd.Flags().BoolVar(&allowAnyOrigin, "allow-any-origin", false, "Accept websocket connections from any origin")

	return cmd
}

// newLiveServer builds a live server whose sessions start on the first view
func newLiveServer(views []chart.View, exec query.Executor, verbose bool) *live.Server {
	first := views[0]
	srv := live.NewServer(func(sched reactive.Scheduler) *chart.Chart {
		store := highlight.NewStore(first.Query.Filter)
		store.SetVerbose(verbose)
		return chart.New(first.Options, store, exec, first.Query, sched)
	})
	srv.SetViews(views)
	srv.SetVerbose(verbose)
	return srv
}

type viewInfo struct {
	Index    int      `json:"index"`
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Measures []string `json:"measures"`
}

// originChecker accepts websocket upgrades from the given origins, "*" for any
func originChecker(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		for _, o := range origins {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return origin == ""
	}
}

func newRouter(liveServer *live.Server, views []chart.View, results *cache.Cache, origins []string, verbose bool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if verbose {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	if len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/api/views", func(w http.ResponseWriter, r *http.Request) {
		infos := make([]viewInfo, len(views))
		for i, v := range views {
			infos[i] = viewInfo{Index: i, Name: v.Name, Kind: string(v.Options.Kind), Measures: v.Options.Measures}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(infos)
	})
	r.Get("/api/sessions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"sessions": liveServer.SessionCount()})
	})
	if results != nil {
		r.Get("/api/cache", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(results.GetStats())
		})
	}
	liveServer.Routes(r)
	return r
}

// serve runs handler on addr until ctx is done. Websocket connections are
// hijacked, so the live sessions are ended separately.
func serve(ctx context.Context, addr string, handler http.Handler, liveServer *live.Server) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Serve] Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Println("[Serve] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := liveServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Serve] Ending sessions: %v", err)
	}
	return srv.Shutdown(shutdownCtx)
}
