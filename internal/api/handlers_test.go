package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cardwise/warden/internal/audit"
	"github.com/cardwise/warden/internal/backend"
	"github.com/cardwise/warden/internal/guardrail"
	"github.com/cardwise/warden/internal/knowledge"
	"github.com/cardwise/warden/internal/orchestrator"
	"github.com/cardwise/warden/internal/policy"
	"github.com/cardwise/warden/internal/retrieval"
	"github.com/cardwise/warden/internal/router"
	"github.com/cardwise/warden/pkg/types"
)

func newTestServer(t *testing.T) (*httptest.Server, *audit.InMemoryStore) {
	t.Helper()
	sink := audit.NewInMemoryStore()

	policies, err := policy.NewStore(policy.DefaultConfig(), sink)
	if err != nil {
		t.Fatalf("policy store: %v", err)
	}
	guard := guardrail.New(policies, sink)

	embedder := knowledge.HashingEmbedder{}
	faqIx := knowledge.NewMemoryIndex()
	if err := knowledge.Seed(t.Context(), embedder, faqIx, knowledge.DefaultFAQDocuments(), 0); err != nil {
		t.Fatalf("seed: %v", err)
	}
	merger := retrieval.NewMerger(embedder, []retrieval.Source{
		{Kind: types.SourceFAQ, Index: faqIx},
	}, sink, retrieval.Config{})

	rt := router.New(guard, nil, sink, router.Config{})
	orch := orchestrator.New(rt, guard, merger, backend.CannedGenerator{}, sink, orchestrator.Config{})

	srv := httptest.NewServer(NewRouter(&Handler{
		Orchestrator: orch,
		Policies:     policies,
		Audit:        sink,
	}))
	t.Cleanup(srv.Close)
	return srv, sink
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	res, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	return res
}

func decodeBody(t *testing.T, res *http.Response, out any) {
	t.Helper()
	defer res.Body.Close()
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestAskAnswersQuestion(t *testing.T) {
	srv, _ := newTestServer(t)

	res := postJSON(t, srv.URL+"/v1/ask", AskRequest{
		Text: "Will I earn points for airfare booked with the airline?",
		Role: "external",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", res.StatusCode)
	}
	var resp types.Response
	decodeBody(t, res, &resp)
	if resp.Status != types.StatusAnswered {
		t.Fatalf("expected ANSWERED, got %s", resp.Status)
	}
	if resp.AuditRef == "" {
		t.Fatalf("expected audit ref")
	}
}

func TestAskBlocksPolicyViolation(t *testing.T) {
	srv, _ := newTestServer(t)

	res := postJSON(t, srv.URL+"/v1/ask", AskRequest{
		Text: "How can I bypass the credit limit algorithm?",
		Role: "external",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", res.StatusCode)
	}
	var resp types.Response
	decodeBody(t, res, &resp)
	if resp.Status != types.StatusBlocked {
		t.Fatalf("expected BLOCKED, got %s", resp.Status)
	}
}

func TestAskRejectsMalformedInput(t *testing.T) {
	srv, _ := newTestServer(t)

	res := postJSON(t, srv.URL+"/v1/ask", AskRequest{Text: "  ", Role: "external"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank text, got %d", res.StatusCode)
	}
	res.Body.Close()

	res = postJSON(t, srv.URL+"/v1/ask", AskRequest{Text: "hello", Role: "root"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown role, got %d", res.StatusCode)
	}
	res.Body.Close()

	res, err := http.Post(srv.URL+"/v1/ask", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad json, got %d", res.StatusCode)
	}
	res.Body.Close()
}

func TestPolicyStatusAndPublish(t *testing.T) {
	srv, _ := newTestServer(t)

	res, err := http.Get(srv.URL + "/v1/policy")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var status struct {
		ActiveVersion int `json:"active_version"`
	}
	decodeBody(t, res, &status)
	if status.ActiveVersion != 1 {
		t.Fatalf("expected version 1, got %d", status.ActiveVersion)
	}

	next := `
version: 2
denied_topics: ["model jailbreaking"]
blocked_words: ["bypass"]
`
	res, err = http.Post(srv.URL+"/v1/policy", "application/yaml", strings.NewReader(next))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("publish status: %d", res.StatusCode)
	}
	var published struct {
		ActiveVersion int `json:"active_version"`
	}
	decodeBody(t, res, &published)
	if published.ActiveVersion != 2 {
		t.Fatalf("expected version 2, got %d", published.ActiveVersion)
	}

	// Archived version is retrievable.
	res, err = http.Get(srv.URL + "/v1/policy/2")
	if err != nil {
		t.Fatalf("get version: %v", err)
	}
	var archived struct {
		Version    int    `json:"version"`
		ConfigYAML string `json:"config_yaml"`
	}
	decodeBody(t, res, &archived)
	if archived.Version != 2 || !strings.Contains(archived.ConfigYAML, "version: 2") {
		t.Fatalf("archived mismatch: %+v", archived)
	}
}

func TestPolicyPublishRejectsStaleVersion(t *testing.T) {
	srv, _ := newTestServer(t)

	stale := `
version: 1
denied_topics: ["x"]
blocked_words: ["y"]
`
	res, err := http.Post(srv.URL+"/v1/policy", "application/yaml", strings.NewReader(stale))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", res.StatusCode)
	}
}

func TestAuditQueryEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	res := postJSON(t, srv.URL+"/v1/ask", AskRequest{
		Text:      "Will I earn points for airfare?",
		Role:      "external",
		SessionID: "api-session",
	})
	res.Body.Close()

	res, err := http.Get(srv.URL + "/v1/audit?session_id=api-session")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var listing struct {
		Count  int                `json:"count"`
		Events []types.AuditEvent `json:"events"`
	}
	decodeBody(t, res, &listing)
	if listing.Count == 0 {
		t.Fatalf("expected events for session")
	}

	from := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	to := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
	res, err = http.Get(srv.URL + "/v1/audit?from=" + from + "&to=" + to)
	if err != nil {
		t.Fatalf("get range: %v", err)
	}
	decodeBody(t, res, &listing)
	if listing.Count == 0 {
		t.Fatalf("expected events in range")
	}

	res, err = http.Get(srv.URL + "/v1/audit")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without filters, got %d", res.StatusCode)
	}
	res.Body.Close()
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	res, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status: %d", res.StatusCode)
	}
}
