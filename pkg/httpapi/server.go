package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/heartportal/fleet-sentinel/pkg/alerting"
	"github.com/heartportal/fleet-sentinel/pkg/logging"
	"github.com/heartportal/fleet-sentinel/pkg/metrics"
	"github.com/heartportal/fleet-sentinel/pkg/sentinel"
)

// Server exposes the monitor's observable outputs over HTTP: latest pass
// report, certificate status, recent alerts and Prometheus metrics. Read-only
// by design; remediation is never triggered through this surface.
type Server struct {
	monitor *sentinel.Monitor
	alerts  *alerting.MemorySink
	server  *http.Server
	logger  logging.Logger
}

// NewServer creates the status server on the given port
func NewServer(port int, monitor *sentinel.Monitor, alerts *alerting.MemorySink, m *metrics.Metrics, logger logging.Logger) *Server {
	s := &Server{
		monitor: monitor,
		alerts:  alerts,
		logger:  logger,
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/certificate", s.handleCertificate).Methods(http.MethodGet)
	router.HandleFunc("/alerts", s.handleAlerts).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Start serves in a background goroutine until Stop is called
func (s *Server) Start() {
	s.logger.Infof("Status server listening, addr: %s", s.server.Addr)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("Status server failed, error: %v", err)
		}
	}()
}

// Stop shuts the server down gracefully
func (s *Server) Stop(ctx context.Context) {
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Errorf("Status server shutdown failed, error: %v", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"passes": s.monitor.PassCount(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	report := s.monitor.LastReport()
	if report == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no pass completed yet"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCertificate(w http.ResponseWriter, r *http.Request) {
	status, err := s.monitor.LastCertificate()
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	if status == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no certificate check completed yet"})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.alerts.Records())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
