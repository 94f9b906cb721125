package fbgo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/TimurManjosov/fbgo-sdk/internal/event"
	"github.com/TimurManjosov/fbgo-sdk/internal/evaluator"
	"github.com/TimurManjosov/fbgo-sdk/internal/model"
)

// Evaluation reasons surfaced to the caller. These mirror the evaluator's
// own decision-pipeline reasons (flag off / target match / rule match /
// fall through) plus the Coordinator-level ones that short-circuit before
// the pipeline ever runs.
const (
	ReasonClientNotReady   = "client not ready"
	ReasonFlagNotFound     = "flag not found"
	ReasonUserNotSpecified = "user not specified"
	ReasonErrorInEval      = "error in evaluation"
	ReasonWrongType        = "wrong type"
)

// EvalDetail is the full result of one VariationDetail call: the
// converted value, why it was produced, and which stored variation (if
// any) it came from.
type EvalDetail struct {
	Value       any
	Reason      string
	VariationID string
}

// BasicFlagState is one flag's entry in an AllLatestFlagVariations
// snapshot.
type BasicFlagState struct {
	Key         string
	Value       any
	VariationID string
	Reason      string
}

// AllFlagStates is a point-in-time snapshot of every known flag evaluated
// for one user.
type AllFlagStates struct {
	States map[string]BasicFlagState
}

// Variation evaluates key for user and returns only the converted value,
// falling back to defaultValue on any of the non-fatal evaluation
// outcomes (client not ready, flag not found, user not specified, a
// stored value that doesn't match the flag's declared variationType).
//
// defaultValue's own type must be one of {bool, string, number, JSON
// object/array} — the inferred type the conversion rules target. A
// default of any other type is a caller error and panics with
// ErrUnsupportedDefaultType, matching the decision to treat it as thrown
// rather than swallowed (spec.md's error-handling design draws this exact
// line between construction/argument errors and steady-state evaluation
// errors).
func (c *Client) Variation(ctx context.Context, key string, user User, defaultValue any) any {
	return c.VariationDetail(ctx, key, user, defaultValue).Value
}

// VariationDetail is Variation plus the reason and stored variation id
// behind the returned value.
func (c *Client) VariationDetail(ctx context.Context, key string, user User, defaultValue any) EvalDetail {
	if !isSupportedDefaultType(defaultValue) {
		panic(fmt.Errorf("fbgo: %w: %T", ErrUnsupportedDefaultType, defaultValue))
	}

	// A configured per-key default (Config.Defaults) takes precedence
	// over the caller's own default, letting an application pin a
	// fallback once rather than repeat it at every call site.
	fallback := defaultValue
	if configured, ok := c.defaults[key]; ok {
		fallback = configured
	}

	if ctx != nil && ctx.Err() != nil {
		return EvalDetail{Value: fallback, Reason: ReasonErrorInEval, VariationID: evaluator.NE}
	}

	if user.KeyID() == "" {
		return EvalDetail{Value: fallback, Reason: ReasonUserNotSpecified, VariationID: evaluator.NE}
	}

	if !c.Initialized() {
		return EvalDetail{Value: fallback, Reason: ReasonClientNotReady, VariationID: evaluator.NE}
	}

	flag, ok := c.registry.GetFlag(key)
	if !ok {
		return EvalDetail{Value: fallback, Reason: ReasonFlagNotFound, VariationID: evaluator.NE}
	}

	result := c.evaluator.Evaluate(flag, user.Get)
	c.sendFlagEvent(user, flag, result)

	if result.VariationID == evaluator.NE {
		return EvalDetail{Value: fallback, Reason: result.Reason, VariationID: evaluator.NE}
	}

	value, ok := convertStoredValue(result.Value, flag.VariationType)
	if !ok {
		return EvalDetail{Value: fallback, Reason: ReasonWrongType, VariationID: result.VariationID}
	}
	return EvalDetail{Value: value, Reason: result.Reason, VariationID: result.VariationID}
}

// IsFlagKnown reports whether key names a flag the Coordinator currently
// holds a definition for (regardless of Initialized or the flag's own
// enabled state); a flag later archived, or left out of a newer full sync,
// is no longer known.
func (c *Client) IsFlagKnown(key string) bool {
	_, ok := c.registry.GetFlag(key)
	return ok
}

// AllLatestFlagVariations evaluates every known flag for user and ships a
// single batched flag event for the whole set, the way the original SDK's
// get_all_states does.
func (c *Client) AllLatestFlagVariations(ctx context.Context, user User) AllFlagStates {
	states := make(map[string]BasicFlagState)
	if ctx != nil && ctx.Err() != nil {
		return AllFlagStates{States: states}
	}
	if user.KeyID() == "" || !c.Initialized() {
		return AllFlagStates{States: states}
	}

	flags := c.registry.AllFlags()
	variations := make([]event.FlagEventVariation, 0, len(flags))
	now := time.Now().UnixMilli()

	for key, flag := range flags {
		result := c.evaluator.Evaluate(flag, user.Get)

		value := zeroValueFor(flag.VariationType)
		if result.VariationID != evaluator.NE {
			if converted, ok := convertStoredValue(result.Value, flag.VariationType); ok {
				value = converted
			}
		}

		states[key] = BasicFlagState{Key: key, Value: value, VariationID: result.VariationID, Reason: result.Reason}

		if result.VariationID != evaluator.NE {
			variations = append(variations, event.FlagEventVariation{
				FeatureFlagKey:   key,
				SendToExperiment: result.IsSendToExperiment,
				Timestamp:        now,
				VariationID:      result.VariationID,
				VariationValue:   result.Value,
				Reason:           result.Reason,
			})
		}
	}

	if len(variations) > 0 {
		c.eventProcessor.SendFlagEvent(event.FlagEvent{User: user, Variations: variations})
	}

	return AllFlagStates{States: states}
}

func (c *Client) sendFlagEvent(user User, flag *model.FlagDefinition, result evaluator.Result) {
	if result.VariationID == evaluator.NE {
		return
	}
	c.eventProcessor.SendFlagEvent(event.FlagEvent{
		User: user,
		Variations: []event.FlagEventVariation{{
			FeatureFlagKey:   flag.Key,
			SendToExperiment: result.IsSendToExperiment,
			Timestamp:        time.Now().UnixMilli(),
			VariationID:      result.VariationID,
			VariationValue:   result.Value,
			Reason:           result.Reason,
		}},
	})
}

// isSupportedDefaultType reports whether v's inferred type is one of
// {boolean, string, number, json}.
func isSupportedDefaultType(v any) bool {
	switch v.(type) {
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		map[string]any, []any:
		return true
	default:
		return false
	}
}

// convertStoredValue maps a flag's stored string value to its declared
// variationType: boolean and json both go through encoding/json, number
// parses as a float and collapses to an integer when it is whole, and
// everything else is returned as the raw string.
func convertStoredValue(raw string, variationType model.VariationType) (any, bool) {
	switch variationType {
	case model.VariationBoolean:
		var b bool
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			return nil, false
		}
		return b, true
	case model.VariationNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false
		}
		if f == math.Trunc(f) {
			return int64(f), true
		}
		return f, true
	case model.VariationJSON:
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, false
		}
		return v, true
	default:
		return raw, true
	}
}

func zeroValueFor(t model.VariationType) any {
	switch t {
	case model.VariationBoolean:
		return false
	case model.VariationNumber:
		return int64(0)
	case model.VariationJSON:
		return nil
	default:
		return ""
	}
}
