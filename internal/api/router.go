package api

import "net/http"

// NewRouter wires the handler onto a ServeMux.
func NewRouter(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/ask", h.Ask)
	mux.HandleFunc("/v1/policy", h.Policy)
	mux.HandleFunc("GET /v1/policy/{version}", h.PolicyVersion)
	mux.HandleFunc("GET /v1/audit", h.AuditEvents)
	mux.HandleFunc("GET /healthz", h.Health)
	return mux
}
