package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/species-trend-etl/internal/domain"
	"github.com/couchcryptid/species-trend-etl/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReportSource exposes the most recent pipeline run.
type ReportSource interface {
	sharedobs.ReadinessChecker
	LastReport() (pipeline.Report, bool)
}

// Server exposes health, readiness, metrics, and run report endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /report routes.
func NewServer(addr string, src ReportSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(src))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /report", handleReport(src))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type jobView struct {
	Job         string                   `json:"job"`
	Error       string                   `json:"error,omitempty"`
	Sightings   int                      `json:"sightings_read"`
	SpeciesKey  string                   `json:"species_key"`
	Records     int                      `json:"records"`
	Matched     int                      `json:"matched"`
	ByMatchKind map[domain.MatchKind]int `json:"by_match_kind,omitempty"`
	BySeason    map[string]int           `json:"by_season,omitempty"`
	DurationMS  int64                    `json:"duration_ms"`
}

type reportView struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Failed     int       `json:"failed"`
	Jobs       []jobView `json:"jobs"`
}

func newReportView(r pipeline.Report) reportView {
	v := reportView{
		RunID:      r.RunID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Failed:     r.Failed(),
		Jobs:       make([]jobView, 0, len(r.Jobs)),
	}
	for _, j := range r.Jobs {
		jv := jobView{
			Job:         j.Job,
			Sightings:   j.Sightings,
			SpeciesKey:  string(j.SpeciesKey),
			Records:     j.Summary.Total,
			Matched:     j.Summary.Matched(),
			ByMatchKind: j.Summary.ByMatchKind,
			BySeason:    j.Summary.BySeason,
			DurationMS:  j.Duration.Milliseconds(),
		}
		if j.Err != nil {
			jv.Error = j.Err.Error()
		}
		v.Jobs = append(v.Jobs, jv)
	}
	return v
}

func handleReport(src ReportSource) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		report, ok := src.LastReport()
		if !ok {
			sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "no run has completed"})
			return
		}
		sharedobs.WriteJSON(w, http.StatusOK, newReportView(report))
	}
}
