// Package api exposes the query pipeline, policy administration, and the
// audit trail over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cardwise/warden/internal/audit"
	"github.com/cardwise/warden/internal/orchestrator"
	"github.com/cardwise/warden/internal/policy"
	"github.com/cardwise/warden/pkg/types"
)

type Handler struct {
	Orchestrator *orchestrator.Orchestrator
	Policies     *policy.Store
	Audit        audit.Store
}

// AskRequest is the wire shape of POST /v1/ask.
type AskRequest struct {
	Text      string `json:"text"`
	Role      string `json:"role"`
	SessionID string `json:"session_id,omitempty"`
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	if h.Orchestrator == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "orchestrator not configured"})
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	resp, err := h.Orchestrator.Handle(r.Context(), types.Query{
		Text:      req.Text,
		Role:      types.Role(req.Role),
		SessionID: req.SessionID,
	})
	if err != nil {
		if errors.Is(err, orchestrator.ErrMalformedInput) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Policy serves GET (active version plus history) and POST (publish a new
// version from a YAML body).
func (h *Handler) Policy(w http.ResponseWriter, r *http.Request) {
	if h.Policies == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "policy store not configured"})
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.policyStatus(w, r)
	case http.MethodPost:
		h.policyPublish(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (h *Handler) policyStatus(w http.ResponseWriter, r *http.Request) {
	records, err := h.Audit.PolicyVersions(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	versions := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		versions = append(versions, map[string]any{
			"version":    rec.Version,
			"created_at": rec.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"active_version": h.Policies.ActiveVersion(),
		"versions":       versions,
	})
}

func (h *Handler) policyPublish(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	var cfg policy.Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid policy yaml: " + err.Error()})
		return
	}

	version, err := h.Policies.Publish(cfg)
	if err != nil {
		if errors.Is(err, policy.ErrInvalidPolicy) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"active_version": version})
}

// PolicyVersion serves GET /v1/policy/{version}: the archived YAML for one
// published version.
func (h *Handler) PolicyVersion(w http.ResponseWriter, r *http.Request) {
	if h.Audit == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "audit store not configured"})
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/v1/policy/")
	version, err := strconv.Atoi(raw)
	if err != nil || version < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid version"})
		return
	}

	rec, ok := h.Audit.GetPolicy(r.Context(), version)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "policy version not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"version":     rec.Version,
		"created_at":  rec.CreatedAt.Format(time.RFC3339),
		"config_yaml": string(rec.ConfigYAML),
	})
}

// AuditEvents serves GET /v1/audit with exactly one filter: query_id,
// session_id, policy_version, or from/to.
func (h *Handler) AuditEvents(w http.ResponseWriter, r *http.Request) {
	if h.Audit == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "audit store not configured"})
		return
	}

	q := r.URL.Query()
	var (
		events []types.AuditEvent
		err    error
	)
	switch {
	case q.Get("query_id") != "":
		events, err = h.Audit.ListByQuery(r.Context(), q.Get("query_id"))
	case q.Get("session_id") != "":
		events, err = h.Audit.ListBySession(r.Context(), q.Get("session_id"))
	case q.Get("policy_version") != "":
		version, convErr := strconv.Atoi(q.Get("policy_version"))
		if convErr != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid policy_version"})
			return
		}
		events, err = h.Audit.ListByPolicyVersion(r.Context(), version)
	case q.Get("from") != "" && q.Get("to") != "":
		from, fromErr := time.Parse(time.RFC3339, q.Get("from"))
		to, toErr := time.Parse(time.RFC3339, q.Get("to"))
		if fromErr != nil || toErr != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from/to must be RFC 3339 timestamps"})
			return
		}
		events, err = h.Audit.ListByTimeRange(r.Context(), from, to)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "one of query_id, session_id, policy_version, or from+to is required"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
