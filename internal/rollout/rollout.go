// Package rollout implements the deterministic MD5-based percentage
// bucketing used to dispatch a user into one variation of a
// RolloutRecord, and the subordinate experiment-inclusion decision.
//
// The hash is chosen for stable, reproducible bucketing, not for security;
// it must not be swapped for a cryptographic or keyed hash.
package rollout

import (
	"crypto/md5"
	"encoding/binary"
	"math"

	"github.com/TimurManjosov/fbgo-sdk/internal/model"
)

// minInt32 is the divisor the original algorithm uses: abs(magic) / |MinInt32|.
const minInt32 = math.MinInt32

// PercentageOf hashes key with MD5 and returns the first four bytes
// interpreted as a little-endian signed int32, normalized to [0,1] by
// dividing its absolute value by |math.MinInt32|.
func PercentageOf(key string) float64 {
	sum := md5.Sum([]byte(key))
	n := int32(binary.LittleEndian.Uint32(sum[:4]))
	magnitude := int64(n)
	if magnitude < 0 {
		magnitude = -magnitude
	}
	return float64(magnitude) / math.Abs(float64(minInt32))
}

// BelongsToPercentage reports whether p falls in the half-open [lo,hi)
// range. The shortcut [0,1] always matches regardless of p.
func BelongsToPercentage(p, lo, hi float64) bool {
	if lo == 0 && hi == 1 {
		return true
	}
	return p >= lo && p < hi
}

// Decision is the result of dispatching a user through a RolloutRecord:
// which variation owns them, and whether the evaluation should also be
// counted toward an experiment.
type Decision struct {
	VariationID        string
	IsSendToExperiment bool
	Found              bool
}

// Dispatch resolves rr for dispatchKeyValue = flagKey + user-attribute
// value at rr.DispatchKey (default "keyid" when unset), following the
// algorithm in the design notes: hash dispatchKeyValue to find the owning
// variation, then separately evaluate experiment inclusion with a distinct
// "expt"-prefixed hash key.
func Dispatch(flagKey string, rr model.RolloutRecord, attr func(name string) (string, bool), exptIncludeAllTargets bool) Decision {
	dispatchKey := rr.DispatchKey
	if dispatchKey == "" {
		dispatchKey = "keyid"
	}
	attrValue, _ := attr(dispatchKey)
	dispatchKeyValue := flagKey + attrValue

	p := PercentageOf(dispatchKeyValue)

	for _, v := range rr.Variations {
		if !BelongsToPercentage(p, v.Rollout[0], v.Rollout[1]) {
			continue
		}
		return Decision{
			VariationID:        v.ID,
			Found:               true,
			IsSendToExperiment: isSendToExperiment(exptIncludeAllTargets, rr, v, dispatchKeyValue),
		}
	}
	return Decision{}
}

func isSendToExperiment(exptIncludeAllTargets bool, rr model.RolloutRecord, v model.RolloutVariation, dispatchKeyValue string) bool {
	if exptIncludeAllTargets {
		return true
	}
	if !rr.IncludedInExpt {
		return false
	}
	width := v.Rollout[1] - v.Rollout[0]
	if width <= 0 {
		return false
	}
	ratio := v.ExptRollout / width
	if ratio > 1 {
		ratio = 1
	}
	p := PercentageOf("expt" + dispatchKeyValue)
	return BelongsToPercentage(p, 0, ratio)
}
