package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) routes() {
	apiV1 := s.router.PathPrefix("/api/v1").Subrouter()
	s.staticsRoutes(apiV1)
	s.healthRoutes(apiV1)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}

func (s *Server) staticsRoutes(r *mux.Router) {
	r.HandleFunc("/statics", s.handleStaticsGet).Methods(http.MethodGet)
	r.HandleFunc("/statics", s.handleStaticsUpdate).Methods(http.MethodPut, http.MethodPost)
	r.HandleFunc("/statics/schema", s.handleStaticsSchemaGet).Methods(http.MethodGet)
}

func (s *Server) healthRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", s.handleHealthzGet).Methods(http.MethodGet)
}
