// Package evaluator implements the flag decision pipeline: disabled state,
// individual targets, rule conditions (including segment membership), and
// percentage-rollout dispatch with an experiment-inclusion sub-decision.
//
// The evaluator is given a read-only getter function for segments so it
// stays agnostic to the store implementation backing them. It has no flag
// getter: callers pass the flag definition itself to Evaluate.
package evaluator

import (
	"github.com/TimurManjosov/fbgo-sdk/internal/model"
	"github.com/TimurManjosov/fbgo-sdk/internal/rollout"
)

// NE is the sentinel variation id returned when evaluation could not
// produce a real variation (e.g. a rollout with no owning interval).
const NE = "NE"

const (
	ReasonFlagOff      = "flag off"
	ReasonTargetMatch  = "target match"
	ReasonRuleMatch    = "rule match"
	ReasonFallthrough  = "fall through all rules"
)

// Result is the outcome of evaluating one flag for one user.
type Result struct {
	VariationID        string
	Value               string
	Reason              string
	IsSendToExperiment bool
	KeyName             string
	Name                string
	FlagType            model.VariationType
}

func errResult(flag *model.FlagDefinition) Result {
	r := Result{VariationID: NE, Reason: ReasonFallthrough}
	if flag != nil {
		r.KeyName = flag.Key
		r.Name = flag.Name
		r.FlagType = flag.VariationType
	}
	return r
}

// SegmentGetter resolves a segment definition by key, returning ok=false
// when it is unknown.
type SegmentGetter func(key string) (model.SegmentDefinition, bool)

// Evaluator runs the decision pipeline. It holds no mutable state.
type Evaluator struct {
	getSegment SegmentGetter
}

// New builds an Evaluator backed by getSegment for segment-membership
// condition checks.
func New(getSegment SegmentGetter) *Evaluator {
	return &Evaluator{getSegment: getSegment}
}

// Attr is how the evaluator reads a user's attributes: built-ins (keyid,
// name) and custom attributes alike, by name.
type Attr func(name string) (string, bool)

// Evaluate runs flag's decision pipeline for a user described by getAttr
// (typically model.User.Get).
func (e *Evaluator) Evaluate(flag *model.FlagDefinition, getAttr Attr) Result {
	if flag == nil {
		return Result{VariationID: NE, Reason: ReasonFallthrough}
	}

	base := Result{KeyName: flag.Key, Name: flag.Name, FlagType: flag.VariationType}

	if !flag.IsEnabled {
		base.VariationID = flag.DisabledVariationID
		base.Value = flag.VariationMap[flag.DisabledVariationID]
		base.Reason = ReasonFlagOff
		base.IsSendToExperiment = false
		return base
	}

	keyID, _ := getAttr("keyid")
	for _, target := range flag.TargetUsers {
		for _, k := range target.KeyIDs {
			if k == keyID {
				base.VariationID = target.VariationID
				base.Value = flag.VariationMap[target.VariationID]
				base.Reason = ReasonTargetMatch
				base.IsSendToExperiment = flag.ExptIncludeAllTargets
				return base
			}
		}
	}

	for _, rule := range flag.Rules {
		if !e.matchesAllConditions(rule.Conditions, getAttr) {
			continue
		}
		return e.dispatch(flag, rule.Rollout, getAttr, ReasonRuleMatch)
	}

	return e.dispatch(flag, flag.Fallthrough, getAttr, ReasonFallthrough)
}

func (e *Evaluator) dispatch(flag *model.FlagDefinition, rr model.RolloutRecord, getAttr Attr, reason string) Result {
	decision := rollout.Dispatch(flag.Key, rr, func(name string) (string, bool) { return getAttr(name) }, flag.ExptIncludeAllTargets)
	if !decision.Found {
		r := errResult(flag)
		r.Reason = reason
		return r
	}
	return Result{
		VariationID:        decision.VariationID,
		Value:               flag.VariationMap[decision.VariationID],
		Reason:              reason,
		IsSendToExperiment: decision.IsSendToExperiment,
		KeyName:             flag.Key,
		Name:                flag.Name,
		FlagType:            flag.VariationType,
	}
}
