package fbgo

import "github.com/TimurManjosov/fbgo-sdk/internal/model"

// User is the ephemeral, per-evaluation subject passed to Variation,
// VariationDetail, Identify and the TrackMetric family. It is never
// persisted by the SDK.
type User = model.User

// NewUser builds a User from its two required identity fields.
func NewUser(keyID, name string) (User, error) { return model.NewUser(keyID, name) }

// UserFromMap builds a User from a loosely-typed attribute map, accepting
// "key"/"keyid"/"keyId" interchangeably for the identity attribute.
func UserFromMap(attrs map[string]any) (User, error) { return model.FromMap(attrs) }
