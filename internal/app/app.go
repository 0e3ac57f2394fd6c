// Package app assembles the service from configuration. The gateway binary,
// the CLI, and the end-to-end tests all build the same pipeline through it.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cardwise/warden/internal/audit"
	"github.com/cardwise/warden/internal/audit/sqlstore"
	"github.com/cardwise/warden/internal/backend"
	"github.com/cardwise/warden/internal/bedrock"
	"github.com/cardwise/warden/internal/config"
	"github.com/cardwise/warden/internal/guardrail"
	"github.com/cardwise/warden/internal/knowledge"
	"github.com/cardwise/warden/internal/orchestrator"
	"github.com/cardwise/warden/internal/policy"
	"github.com/cardwise/warden/internal/retrieval"
	"github.com/cardwise/warden/internal/router"
	"github.com/cardwise/warden/pkg/types"
)

// App is the assembled service.
type App struct {
	Policies     *policy.Store
	Audit        audit.Store
	Guard        *guardrail.Engine
	Router       *router.Router
	Merger       *retrieval.Merger
	Orchestrator *orchestrator.Orchestrator
	Embedder     backend.Embedder

	closers []io.Closer
}

// New wires the pipeline. Disabled optional backends (redis, aws) fall back
// to in-process equivalents so a bare config still yields a working service.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{}

	sink, err := a.buildAuditStore(cfg)
	if err != nil {
		return nil, err
	}
	a.Audit = sink

	policyCfg := policy.DefaultConfig()
	if cfg.PolicyPath != "" {
		loaded, err := policy.Load(cfg.PolicyPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("load policy: %w", err)
		}
		policyCfg = loaded
	}
	policies, err := policy.NewStore(policyCfg, sink)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("policy store: %w", err)
	}
	a.Policies = policies
	a.Guard = guardrail.New(policies, sink)

	embedder, generator, err := a.buildModelBackends(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Embedder = embedder

	sources, err := a.buildKnowledge(ctx, cfg, embedder)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Merger = retrieval.NewMerger(embedder, sources, sink, retrieval.Config{
		TopK:             cfg.Retrieval.TopK,
		Budget:           cfg.Retrieval.Budget,
		NearDupThreshold: cfg.Retrieval.NearDupThreshold,
		SourceTimeout:    cfg.Retrieval.SourceTimeout.Std(),
		Weights:          sourceWeights(cfg.Retrieval),
	})
	a.Router = router.New(a.Guard, embedder, sink, router.Config{
		Epsilon:       cfg.Router.Epsilon,
		MinConfidence: cfg.Router.MinConfidence,
	})
	a.Orchestrator = orchestrator.New(a.Router, a.Guard, a.Merger, generator, sink, orchestrator.Config{
		MaxQueryChars:        cfg.Limits.MaxQueryChars,
		MaxRetries:           cfg.Limits.MaxRetries,
		RetryBackoff:         cfg.Limits.RetryBackoff.Std(),
		BlockedInputMessage:  cfg.Messages.BlockedInput,
		BlockedOutputMessage: cfg.Messages.BlockedOutput,
		FallbackMessage:      cfg.Messages.Fallback,
		DegradedMessage:      cfg.Messages.Degraded,
	})
	return a, nil
}

// Close releases held resources in reverse acquisition order.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (a *App) buildAuditStore(cfg config.Config) (audit.Store, error) {
	if cfg.DB.Driver == "" {
		return audit.NewInMemoryStore(), nil
	}
	if cfg.DB.Driver != "sqlite" {
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DB.Driver)
	}
	store, err := sqlstore.OpenSQLite(cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	a.closers = append(a.closers, store)
	return store, nil
}

func (a *App) buildModelBackends(ctx context.Context, cfg config.Config) (backend.Embedder, backend.Generator, error) {
	if !cfg.AWS.Enabled {
		return knowledge.HashingEmbedder{}, backend.CannedGenerator{}, nil
	}
	client, err := bedrock.NewClient(ctx, cfg.AWS.Region)
	if err != nil {
		return nil, nil, err
	}
	return bedrock.NewEmbedder(client, cfg.AWS.EmbedModelID),
		bedrock.NewGenerator(client, cfg.AWS.GenerateModelID, 0), nil
}

// buildKnowledge constructs and seeds one index per source kind.
func (a *App) buildKnowledge(ctx context.Context, cfg config.Config, embedder backend.Embedder) ([]retrieval.Source, error) {
	var policyIdx, faqIdx knowledge.ChunkSink
	var policyTopK, faqTopK backend.VectorIndex

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		a.closers = append(a.closers, client)
		p := knowledge.NewRedisIndex(client, "warden:policy_doc")
		f := knowledge.NewRedisIndex(client, "warden:faq")
		policyIdx, faqIdx = p, f
		policyTopK, faqTopK = p, f
	} else {
		p := knowledge.NewMemoryIndex()
		f := knowledge.NewMemoryIndex()
		policyIdx, faqIdx = p, f
		policyTopK, faqTopK = p, f
	}

	if err := knowledge.Seed(ctx, embedder, policyIdx, knowledge.DefaultPolicyDocuments(), 0); err != nil {
		return nil, fmt.Errorf("seed policy corpus: %w", err)
	}
	if err := knowledge.Seed(ctx, embedder, faqIdx, knowledge.DefaultFAQDocuments(), 0); err != nil {
		return nil, fmt.Errorf("seed faq corpus: %w", err)
	}

	return []retrieval.Source{
		{Kind: types.SourcePolicyDoc, Index: policyTopK},
		{Kind: types.SourceFAQ, Index: faqTopK},
	}, nil
}

func sourceWeights(rc config.RetrievalConfig) map[types.SourceKind]float64 {
	if rc.PolicyDocWeight == 0 && rc.FAQWeight == 0 {
		return nil
	}
	weights := map[types.SourceKind]float64{}
	if rc.PolicyDocWeight > 0 {
		weights[types.SourcePolicyDoc] = rc.PolicyDocWeight
	}
	if rc.FAQWeight > 0 {
		weights[types.SourceFAQ] = rc.FAQWeight
	}
	return weights
}
