package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Aurracloud/agentic-x402/internal/core/domain"
	"github.com/Aurracloud/agentic-x402/internal/core/token"
	"github.com/Aurracloud/agentic-x402/internal/infra/storage"
	"github.com/Aurracloud/agentic-x402/internal/watch"
)

// maxPaymentsLimit caps the ?limit query on /payments so a single request
// cannot drive an unbounded journal read.
const maxPaymentsLimit = 1000

// StatusProvider exposes the watcher's status snapshot.
type StatusProvider interface {
	Status() watch.Status
}

// Server provides the status, health and metrics HTTP endpoints. This is the
// operational surface, distinct from the agent gateway the notifier posts to.
type Server struct {
	provider StatusProvider
	journal  storage.PaymentJournal
	decimals int
	server   *http.Server
}

// NewServer creates the ops server.
func NewServer(provider StatusProvider, journal storage.PaymentJournal, port, decimals int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		provider: provider,
		journal:  journal,
		decimals: decimals,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/payments", s.handlePayments)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the route mux, used by tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.provider.Status())
}

type paymentView struct {
	ID              string `json:"id"`
	RouterAddress   string `json:"routerAddress"`
	RouterName      string `json:"routerName"`
	PreviousBalance string `json:"previousBalance"`
	NewBalance      string `json:"newBalance"`
	Increase        string `json:"increase"`
	DetectedAt      string `json:"detectedAt"`
}

func (s *Server) handlePayments(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, maxPaymentsLimit)
		}
	}

	events, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	views := make([]paymentView, 0, len(events))
	for _, ev := range events {
		views = append(views, paymentView{
			ID:              ev.ID,
			RouterAddress:   ev.Address,
			RouterName:      ev.Label,
			PreviousBalance: token.FormatUnits(ev.Previous, s.decimals),
			NewBalance:      token.FormatUnits(ev.Current, s.decimals),
			Increase:        token.FormatUnits(ev.Increase, s.decimals),
			DetectedAt:      domain.Timestamp(ev.DetectedAt),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}
