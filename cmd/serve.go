package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/relief-analytics/vulnassess-cli/internal/align"
	"github.com/relief-analytics/vulnassess-cli/internal/boundary"
	"github.com/relief-analytics/vulnassess-cli/internal/model"
	"github.com/relief-analytics/vulnassess-cli/internal/scoring"
	"github.com/relief-analytics/vulnassess-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the preview server",
	Long:  "Serves stateless alignment and scoring previews over HTTP. Nothing a preview computes is persisted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		mux := newServeMux(st)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newServeMux(st store.Store) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /preview/align", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Country string                `json:"country"`
			Level   model.AdminLevel      `json:"level"`
			Config  *model.MatchingConfig `json:"config,omitempty"`
			Records []model.RawRecord     `json:"records"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.Country == "" || req.Level.Depth() < 0 {
			http.Error(w, `{"error":"country and level are required"}`, http.StatusBadRequest)
			return
		}

		boundaries, err := st.Boundaries(r.Context(), req.Country, req.Level)
		if err != nil {
			zap.L().Error("preview align: load boundaries", zap.Error(err))
			http.Error(w, `{"error":"boundary lookup failed"}`, http.StatusInternalServerError)
			return
		}

		mcfg := model.DefaultMatchingConfig()
		if req.Config != nil {
			mcfg = *req.Config
		}

		idx := boundary.NewIndex(boundaries)
		results, err := align.MatchBatch(r.Context(), req.Records, mcfg, idx, 1)
		if err != nil {
			http.Error(w, `{"error":"alignment cancelled"}`, http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"results": results,
			"health":  align.Assess(results, idx),
		})
	})

	mux.HandleFunc("POST /preview/score", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Config model.DatasetScoreConfig `json:"config"`
			Values []store.AlignedValue     `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if err := scoring.ValidateConfig(req.Config); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		records := make([]model.RawRecord, len(req.Values))
		for i, v := range req.Values {
			records[i] = model.RawRecord{Value: v.Value, Category: v.Category}
		}
		stats := scoring.ComputeStats(records)

		scores := make(map[string]*float64, len(req.Values))
		for _, v := range req.Values {
			if req.Config.Method == model.MethodCategoryMapping {
				scores[v.PCode] = scoring.NormalizeCategory(v.Category, req.Config)
			} else {
				scores[v.PCode] = scoring.Normalize(v.Value, stats, req.Config)
			}
		}

		writeJSON(w, http.StatusOK, map[string]any{"scores": scores})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
