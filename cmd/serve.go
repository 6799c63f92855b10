package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadfinder/internal/leads"
	"github.com/sells-group/leadfinder/internal/quota"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lead discovery HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		// Background cleanup of idle counters.
		sweeper := quota.NewSweeper(env.Store, cfg.Quota.Window(), cfg.Quota.SweepInterval())
		go sweeper.Run(ctx)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env.Pipeline, env.Enforcer),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(context.Background())
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// discoverer is the slice of the pipeline the HTTP layer needs.
type discoverer interface {
	Discover(ctx context.Context, req leads.SearchRequest) (*leads.Result, error)
}

// usageReader is the slice of the enforcer the HTTP layer needs.
type usageReader interface {
	Usage(ctx context.Context, key string) (*quota.Usage, error)
}

func newRouter(pipeline discoverer, enforcer usageReader) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Account-ID", "X-Account-Tier"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/v1/discover", func(w http.ResponseWriter, r *http.Request) {
		var req leads.SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Caller = callerIdentity(r)

		res, err := pipeline.Discover(r.Context(), req)
		if err != nil {
			status, msg := classifyError(err)
			zap.L().Warn("discover request failed",
				zap.Int("status", status),
				zap.Error(err))
			writeError(w, status, msg)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	r.Get("/v1/usage", func(w http.ResponseWriter, r *http.Request) {
		id := callerIdentity(r)
		u, err := enforcer.Usage(r.Context(), id.Key)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "usage lookup failed")
			return
		}
		if u == nil {
			u = &quota.Usage{Key: id.Key}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"key":          u.Key,
			"search_count": u.SearchCount,
			"window_start": u.WindowStart,
		})
	})

	return r
}

// callerIdentity derives the quota identity for a request: account headers
// when present, otherwise the client IP.
func callerIdentity(r *http.Request) quota.Identity {
	if acct := r.Header.Get("X-Account-ID"); acct != "" {
		tier := quota.Tier(r.Header.Get("X-Account-Tier"))
		if tier == "" {
			tier = quota.TierStarter
		}
		return quota.AccountIdentity(acct, tier)
	}

	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return quota.AnonymousIdentity(ip)
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, leads.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, leads.ErrLocationNotFound):
		return http.StatusNotFound, "location could not be resolved"
	case errors.Is(err, leads.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "search limit reached, try again later"
	case errors.Is(err, leads.ErrRequestDenied):
		return http.StatusInternalServerError, "provider rejected our credentials"
	case errors.Is(err, leads.ErrUpstreamUnavailable):
		return http.StatusBadGateway, "places provider unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
