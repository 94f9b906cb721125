package model

import (
	"fmt"
	"strconv"
	"strings"
)

// AttrKeyID and AttrName name the two attributes every User carries outside
// the custom map; keyAliases below lists the aliases a caller may use when
// constructing or looking one up.
const (
	AttrKeyID = "keyid"
	AttrName  = "name"
)

var keyAliases = map[string]string{
	"key":   AttrKeyID,
	"keyid": AttrKeyID,
	"keyId": AttrKeyID,
}

// User is the ephemeral, per-evaluation-request subject. It is never
// persisted by the SDK; callers construct one per call.
type User struct {
	keyID      string
	name       string
	custom     map[string]string
}

// NewUser builds a User from its two required fields. keyID and name are
// trimmed and must be non-empty.
func NewUser(keyID, name string) (User, error) {
	u := User{custom: make(map[string]string)}
	keyID = strings.TrimSpace(keyID)
	name = strings.TrimSpace(name)
	if keyID == "" {
		return u, fmt.Errorf("user keyid must not be empty")
	}
	if name == "" {
		return u, fmt.Errorf("user name must not be empty")
	}
	u.keyID = keyID
	u.name = name
	return u, nil
}

// FromMap builds a User the way the original SDK's from_dict constructor
// does: it accepts "keyid"/"key"/"keyId" interchangeably for the identity
// attribute, requires "name", and stringifies every other value into the
// custom attribute set.
func FromMap(attrs map[string]any) (User, error) {
	keyID, _ := firstString(attrs, "keyid", "key", "keyId")
	name, _ := firstString(attrs, "name")
	u, err := NewUser(keyID, name)
	if err != nil {
		return u, err
	}
	for k, v := range attrs {
		normalized := normalizeAttrName(k)
		if normalized == AttrKeyID || normalized == AttrName {
			continue
		}
		if err := u.With(k, v); err != nil {
			return u, err
		}
	}
	return u, nil
}

func firstString(attrs map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := attrs[k]; ok {
			if s, ok := stringify(v); ok {
				return s, true
			}
		}
	}
	return "", false
}

// With sets a custom attribute, rejecting keys that collide with the two
// built-in identity attributes (by name or alias) and stringifying numeric
// and boolean values at construction time.
func (u *User) With(key string, value any) error {
	normalized := normalizeAttrName(key)
	if normalized == AttrKeyID || normalized == AttrName {
		return fmt.Errorf("custom attribute %q collides with a built-in user attribute", key)
	}
	s, ok := stringify(value)
	if !ok {
		return fmt.Errorf("unsupported custom attribute value type for %q", key)
	}
	if u.custom == nil {
		u.custom = make(map[string]string)
	}
	u.custom[key] = s
	return nil
}

func stringify(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10), true
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

func normalizeAttrName(key string) string {
	if alias, ok := keyAliases[key]; ok {
		return alias
	}
	return strings.ToLower(key)
}

// KeyID returns the user's identity attribute.
func (u User) KeyID() string { return u.keyID }

// Name returns the user's display name.
func (u User) Name() string { return u.name }

// Get looks up an attribute by name, honouring the built-in aliases.
func (u User) Get(attr string) (string, bool) {
	switch normalizeAttrName(attr) {
	case AttrKeyID:
		return u.keyID, true
	case AttrName:
		return u.name, true
	}
	v, ok := u.custom[attr]
	return v, ok
}

// GetOrElse looks up an attribute, returning fallback when absent.
func (u User) GetOrElse(attr, fallback string) string {
	if v, ok := u.Get(attr); ok {
		return v
	}
	return fallback
}

// CustomAttribute is one entry of the wire-ready customizedProperties list.
type CustomAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ToJSONDict mirrors FBUser.to_json_dict: keyId/name plus the custom
// attributes as a name/value pair list, used when building event payloads.
func (u User) ToJSONDict() map[string]any {
	props := make([]CustomAttribute, 0, len(u.custom))
	for k, v := range u.custom {
		props = append(props, CustomAttribute{Name: k, Value: v})
	}
	return map[string]any{
		"keyId":               u.keyID,
		"name":                u.name,
		"customizedProperties": props,
	}
}
