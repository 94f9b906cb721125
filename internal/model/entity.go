// Package model defines the data-store representation of flag and segment
// entities, plus the ephemeral per-request User type.
package model

// Entity is the common envelope every stored record carries regardless of
// category: a monotonic version and an archival tombstone.
//
// timestamp is milliseconds since epoch and doubles as the version used for
// upsert gating; isArchived entities are invisible to readers but keep
// their timestamp so a later, older update cannot resurrect them.
type Entity struct {
	Key        string
	Timestamp  int64
	IsArchived bool
}

// TargetUser binds one variation to an explicit, individually targeted set
// of user keys.
type TargetUser struct {
	VariationID string
	KeyIDs      []string
}

// RolloutVariation is one slice of a RolloutRecord's [0,1] partition.
type RolloutVariation struct {
	ID         string
	Rollout    [2]float64 // half-open [lo, hi)
	ExptRollout float64
}

// RolloutRecord decides, for a dispatch key value, which variation owns the
// evaluation and whether it should additionally count toward an experiment.
type RolloutRecord struct {
	DispatchKey    string
	IncludedInExpt bool
	Variations     []RolloutVariation
}

// ConditionRecord is one leaf test inside a RuleRecord.
type ConditionRecord struct {
	Property string
	Op       string
	Value    string
}

// RuleRecord is an ordered, AND-combined set of conditions that, on match,
// dispatches through its own RolloutRecord.
type RuleRecord struct {
	ID        string
	Conditions []ConditionRecord
	Rollout   RolloutRecord
}

// FlagDefinition is the category "feature-flag" stored record.
type FlagDefinition struct {
	Entity

	Key                   string
	Name                  string
	IsEnabled             bool
	VariationType         VariationType
	VariationMap          map[string]string // variation id -> stored string value
	DisabledVariationID   string
	TargetUsers           []TargetUser
	Rules                 []RuleRecord
	Fallthrough           RolloutRecord
	ExptIncludeAllTargets bool
}

// VariationType is the declared shape of a flag's stored variation values.
type VariationType string

const (
	VariationString  VariationType = "string"
	VariationBoolean VariationType = "boolean"
	VariationNumber  VariationType = "number"
	VariationJSON    VariationType = "json"
)

// SegmentDefinition is the category "segment" stored record.
type SegmentDefinition struct {
	Entity

	Key      string
	Excluded []string
	Included []string
	Rules    []RuleRecord
}
