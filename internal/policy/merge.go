package policy

import (
	"sort"
	"strings"

	"github.com/cardwise/warden/pkg/types"
)

// Resolve merges the role override delta over the base config and returns a
// matching-ready snapshot for that role. Unknown roles get the base config.
func Resolve(cfg Config, role types.Role) Snapshot {
	snap := Snapshot{
		Version:            cfg.Version,
		PIIAction:          cfg.PIIAction,
		VisibleSuffix:      make(map[EntityKind]int, len(cfg.VisibleSuffix)),
		CategoryThresholds: make(map[string]float64, len(cfg.CategoryThresholds)),
	}
	for k, v := range cfg.VisibleSuffix {
		snap.VisibleSuffix[k] = v
	}
	for k, v := range cfg.CategoryThresholds {
		snap.CategoryThresholds[k] = v
	}

	topics := cfg.DeniedTopics
	words := cfg.BlockedWords
	entities := cfg.PIIEntities

	if ov, ok := cfg.RoleOverrides[role]; ok {
		topics = applyDelta(topics, ov.AddDeniedTopics, ov.RemoveDeniedTopics)
		words = applyDelta(words, ov.AddBlockedWords, ov.RemoveBlockedWords)
		entities = applyEntityDelta(entities, ov.AddPIIEntities, ov.RemovePIIEntities)
		if ov.PIIAction != nil {
			snap.PIIAction = *ov.PIIAction
		}
		for k, v := range ov.CategoryThresholds {
			snap.CategoryThresholds[k] = v
		}
	} else {
		topics = applyDelta(topics, nil, nil)
		words = applyDelta(words, nil, nil)
		entities = applyEntityDelta(entities, nil, nil)
	}

	snap.DeniedTopics = topics
	snap.BlockedWords = words
	snap.PIIEntities = entities
	return snap
}

func applyDelta(base, add, remove []string) []string {
	set := make(map[string]struct{}, len(base)+len(add))
	for _, v := range base {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	for _, v := range add {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	for _, v := range remove {
		delete(set, strings.ToLower(strings.TrimSpace(v)))
	}
	delete(set, "")

	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func applyEntityDelta(base, add, remove []EntityKind) []EntityKind {
	set := make(map[EntityKind]struct{}, len(base)+len(add))
	for _, v := range base {
		set[v] = struct{}{}
	}
	for _, v := range add {
		set[v] = struct{}{}
	}
	for _, v := range remove {
		delete(set, v)
	}

	out := make([]EntityKind, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
