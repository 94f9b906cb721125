package streaming

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/TimurManjosov/fbgo-sdk/internal/category"
	"github.com/TimurManjosov/fbgo-sdk/internal/model"
)

// envelope is the top-level JSON message the server sends over the socket.
type envelope struct {
	MessageType string   `json:"messageType"`
	Data        syncData `json:"data"`
}

type syncData struct {
	EventType    string      `json:"eventType"`
	FeatureFlags []wireFlag  `json:"featureFlags"`
	Segments     []wireSeg   `json:"segments"`
	Timestamp    int64       `json:"timestamp"`
}

type wireVariation struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

type wireTargetUser struct {
	VariationID string   `json:"variationId"`
	KeyIDs      []string `json:"keyIds"`
}

type wireRolloutVariation struct {
	ID          string    `json:"id"`
	Rollout     []float64 `json:"rollout"`
	ExptRollout float64   `json:"exptRollout"`
}

type wireRollout struct {
	DispatchKey    string                 `json:"dispatchKey"`
	IncludedInExpt bool                   `json:"includedInExpt"`
	Variations     []wireRolloutVariation `json:"variations"`
}

type wireCondition struct {
	Property string `json:"property"`
	Op       string `json:"op"`
	Value    string `json:"value"`
}

type wireRule struct {
	ID         string          `json:"id"`
	Conditions []wireCondition `json:"conditions"`
	Rollout    wireRollout     `json:"rollout"`
}

type wireFlag struct {
	ID                    string           `json:"id"`
	InternalID            string           `json:"_id"`
	Name                  string           `json:"name"`
	IsEnabled             bool             `json:"isEnabled"`
	VariationType         string           `json:"variationType"`
	Variations            []wireVariation  `json:"variations"`
	DisabledVariationID   string           `json:"disabledVariationId"`
	TargetUsers           []wireTargetUser `json:"targetUsers"`
	Rules                 []wireRule       `json:"rules"`
	Fallthrough           wireRollout      `json:"fallthrough"`
	ExptIncludeAllTargets bool             `json:"exptIncludeAllTargets"`
	UpdatedAt             string           `json:"updatedAt"`
	IsArchived            bool             `json:"isArchived"`
}

type wireSeg struct {
	ID         string     `json:"id"`
	Excluded   []string   `json:"excluded"`
	Included   []string   `json:"included"`
	Rules      []wireRule `json:"rules"`
	UpdatedAt  string     `json:"updatedAt"`
	IsArchived bool       `json:"isArchived"`
}

func parseUpdatedAt(raw string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("missing updatedAt")
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return 0, fmt.Errorf("invalid updatedAt %q: %w", raw, err)
	}
	return t.UnixMilli(), nil
}

func decodeRollout(w wireRollout) model.RolloutRecord {
	variations := make([]model.RolloutVariation, 0, len(w.Variations))
	for _, v := range w.Variations {
		var lo, hi float64
		if len(v.Rollout) == 2 {
			lo, hi = v.Rollout[0], v.Rollout[1]
		}
		variations = append(variations, model.RolloutVariation{
			ID:          v.ID,
			Rollout:     [2]float64{lo, hi},
			ExptRollout: v.ExptRollout,
		})
	}
	return model.RolloutRecord{
		DispatchKey:    w.DispatchKey,
		IncludedInExpt: w.IncludedInExpt,
		Variations:     variations,
	}
}

func decodeRules(rules []wireRule) []model.RuleRecord {
	out := make([]model.RuleRecord, 0, len(rules))
	for _, r := range rules {
		conditions := make([]model.ConditionRecord, 0, len(r.Conditions))
		for _, c := range r.Conditions {
			conditions = append(conditions, model.ConditionRecord{
				Property: c.Property,
				Op:       c.Op,
				Value:    c.Value,
			})
		}
		out = append(out, model.RuleRecord{
			ID:         r.ID,
			Conditions: conditions,
			Rollout:    decodeRollout(r.Rollout),
		})
	}
	return out
}

// decodeFlag converts one wire flag record to the store's Entity+
// FlagDefinition pair. Archived flags are compacted to a bare tombstone,
// matching the server's own archival compaction.
func decodeFlag(w wireFlag) (string, model.Entity, *model.FlagDefinition, error) {
	ts, err := parseUpdatedAt(w.UpdatedAt)
	if err != nil {
		return "", model.Entity{}, nil, err
	}

	key := w.ID
	entity := model.Entity{Key: key, Timestamp: ts, IsArchived: w.IsArchived}
	if w.IsArchived {
		return key, entity, nil, nil
	}

	variationMap := make(map[string]string, len(w.Variations))
	for _, v := range w.Variations {
		variationMap[v.ID] = v.Value
	}

	targets := make([]model.TargetUser, 0, len(w.TargetUsers))
	for _, t := range w.TargetUsers {
		targets = append(targets, model.TargetUser{VariationID: t.VariationID, KeyIDs: t.KeyIDs})
	}

	flag := &model.FlagDefinition{
		Entity:                entity,
		Key:                   key,
		Name:                  w.Name,
		IsEnabled:             w.IsEnabled,
		VariationType:         model.VariationType(w.VariationType),
		VariationMap:          variationMap,
		DisabledVariationID:   w.DisabledVariationID,
		TargetUsers:           targets,
		Rules:                 decodeRules(w.Rules),
		Fallthrough:           decodeRollout(w.Fallthrough),
		ExptIncludeAllTargets: w.ExptIncludeAllTargets,
	}
	return key, entity, flag, nil
}

func decodeSegment(w wireSeg) (string, model.Entity, *model.SegmentDefinition, error) {
	ts, err := parseUpdatedAt(w.UpdatedAt)
	if err != nil {
		return "", model.Entity{}, nil, err
	}

	key := w.ID
	entity := model.Entity{Key: key, Timestamp: ts, IsArchived: w.IsArchived}
	if w.IsArchived {
		return key, entity, nil, nil
	}

	seg := &model.SegmentDefinition{
		Entity:   entity,
		Key:      key,
		Excluded: w.Excluded,
		Included: w.Included,
		Rules:    decodeRules(w.Rules),
	}
	return key, entity, seg, nil
}

// decoded holds one payload's worth of parsed entities, ready to hand to
// the store directly, plus a lookup into the typed definitions the
// evaluator consumes (archived keys are absent from the typed maps).
type decoded struct {
	entities map[category.Category]map[string]model.Entity
	flags    map[string]*model.FlagDefinition
	segments map[string]*model.SegmentDefinition
}

func newDecoded() decoded {
	entities := make(map[category.Category]map[string]model.Entity, len(category.All))
	for _, c := range category.All {
		entities[c] = make(map[string]model.Entity)
	}
	return decoded{
		entities: entities,
		flags:    make(map[string]*model.FlagDefinition),
		segments: make(map[string]*model.SegmentDefinition),
	}
}

func decodePayload(data syncData) (decoded, error) {
	out := newDecoded()

	for _, w := range data.FeatureFlags {
		key, entity, flag, err := decodeFlag(w)
		if err != nil {
			return decoded{}, err
		}
		out.entities[category.FeatureFlags][key] = entity
		if flag != nil {
			out.flags[key] = flag
		}
	}
	for _, w := range data.Segments {
		key, entity, seg, err := decodeSegment(w)
		if err != nil {
			return decoded{}, err
		}
		out.entities[category.Segments][key] = entity
		if seg != nil {
			out.segments[key] = seg
		}
	}
	return out, nil
}

// sortedFlagKeysByTimestamp and sortedSegmentKeysByTimestamp return copies
// of the wire flag (or segment) records in ascending updatedAt order
// (compared as strings), as patch application requires per category.
func sortedFlagKeysByTimestamp(flags []wireFlag) []wireFlag {
	out := append([]wireFlag(nil), flags...)
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt < out[j].UpdatedAt })
	return out
}

func sortedSegmentKeysByTimestamp(segs []wireSeg) []wireSeg {
	out := append([]wireSeg(nil), segs...)
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt < out[j].UpdatedAt })
	return out
}

// DecodeFullSyncJSON parses a bare data-sync payload (the "data" field of
// the envelope, not the envelope itself) for offline bootstrap from a
// pre-fetched JSON document, returning the store-ready entities alongside
// their typed flag/segment definitions.
func DecodeFullSyncJSON(raw []byte) (entities map[category.Category]map[string]model.Entity, flags map[string]*model.FlagDefinition, segments map[string]*model.SegmentDefinition, timestamp int64, err error) {
	var data syncData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, nil, nil, 0, err
	}
	decodedData, err := decodePayload(data)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	return decodedData.entities, decodedData.flags, decodedData.segments, data.Timestamp, nil
}

func parseEnvelope(raw []byte) (envelope, error) {
	var e envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return envelope{}, err
	}
	return e, nil
}
