package evaluator

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/TimurManjosov/fbgo-sdk/internal/model"
)

// Operator names, exactly as the server sends them.
const (
	OpBiggerThan      = "BiggerThan"
	OpBiggerEqualThan = "BiggerEqualThan"
	OpLessThan        = "LessThan"
	OpLessEqualThan   = "LessEqualThan"
	OpEqual           = "Equal"
	OpNotEqual        = "NotEqual"
	OpContains        = "Contains"
	OpNotContain      = "NotContain"
	OpIsOneOf         = "IsOneOf"
	OpNotOneOf        = "NotOneOf"
	OpStartsWith      = "StartsWith"
	OpEndsWith        = "EndsWith"
	OpIsTrue          = "IsTrue"
	OpIsFalse         = "IsFalse"
	OpMatchRegex      = "MatchRegex"
	OpNotMatchRegex   = "NotMatchRegex"
	OpUserInSegment   = "User is in segment"
	OpUserNotInSegment = "User is not in segment"
)

// conditionHandler checks one condition's operator against the user's
// resolved attribute value and the condition's configured value. getAttr
// is threaded through for the two segment operators, which need to
// resolve attributes of their own (the user's keyid, and whatever a
// segment's own rules test) independent of the condition's Property.
type conditionHandler func(e *Evaluator, getAttr Attr, userValue string, hasValue bool, value string) bool

// conditionHandlers is filled in init rather than by a package-level
// initializer: the segment handlers reach back into matchesCondition, which
// reads this map, and Go rejects that as an initialization cycle.
var conditionHandlers map[string]conditionHandler

func init() {
	conditionHandlers = map[string]conditionHandler{
		OpBiggerThan:       numericCompare(func(a, b float64) bool { return a > b }),
		OpBiggerEqualThan:  numericCompare(func(a, b float64) bool { return a >= b }),
		OpLessThan:         numericCompare(func(a, b float64) bool { return a < b }),
		OpLessEqualThan:    numericCompare(func(a, b float64) bool { return a <= b }),
		OpEqual:            equalHandler,
		OpNotEqual:         notEqualHandler,
		OpContains:         containsHandler,
		OpNotContain:       notContainsHandler,
		OpIsOneOf:          isOneOfHandler,
		OpNotOneOf:         notOneOfHandler,
		OpStartsWith:       startsWithHandler,
		OpEndsWith:         endsWithHandler,
		OpIsTrue:           isTrueHandler,
		OpIsFalse:          isFalseHandler,
		OpMatchRegex:       matchRegexHandler,
		OpNotMatchRegex:    notMatchRegexHandler,
		OpUserInSegment:    userInSegmentHandler,
		OpUserNotInSegment: userNotInSegmentHandler,
	}
}

// regexCache keeps compiled patterns around for the hot evaluation path.
var regexCache sync.Map // pattern string -> *regexp.Regexp

// matchesAllConditions ANDs every condition in the rule; the first failing
// condition short-circuits the rest.
func (e *Evaluator) matchesAllConditions(conditions []model.ConditionRecord, getAttr Attr) bool {
	for _, c := range conditions {
		if !e.matchesCondition(c, getAttr) {
			return false
		}
	}
	return true
}

func (e *Evaluator) matchesCondition(c model.ConditionRecord, getAttr Attr) bool {
	op := c.Op
	if op == "" {
		// Legacy segment conditions carry the operator in Property when Op
		// is left blank.
		op = c.Property
	}

	handler, ok := conditionHandlers[op]
	if !ok {
		return false
	}

	userValue, hasValue := getAttr(c.Property)
	return handler(e, getAttr, userValue, hasValue, c.Value)
}

func numericCompare(cmp func(a, b float64) bool) conditionHandler {
	return func(_ *Evaluator, _ Attr, userValue string, hasValue bool, value string) bool {
		if !hasValue {
			return false
		}
		a, aok := parseFloat(userValue)
		b, bok := parseFloat(value)
		if !aok || !bok {
			return false
		}
		return cmp(round5(a), round5(b))
	}
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

func round5(f float64) float64 {
	const factor = 1e5
	return math.Round(f*factor) / factor
}

func equalHandler(_ *Evaluator, _ Attr, userValue string, hasValue bool, value string) bool {
	if !hasValue {
		return false
	}
	return userValue == value
}

func notEqualHandler(e *Evaluator, getAttr Attr, userValue string, hasValue bool, value string) bool {
	return !equalHandler(e, getAttr, userValue, hasValue, value)
}

func containsHandler(_ *Evaluator, _ Attr, userValue string, hasValue bool, value string) bool {
	if !hasValue {
		return false
	}
	return strings.Contains(userValue, value)
}

func notContainsHandler(e *Evaluator, getAttr Attr, userValue string, hasValue bool, value string) bool {
	if !hasValue {
		return true
	}
	return !containsHandler(e, getAttr, userValue, hasValue, value)
}

func isOneOfHandler(_ *Evaluator, _ Attr, userValue string, hasValue bool, value string) bool {
	if !hasValue {
		return false
	}
	list, ok := decodeStringArray(value)
	if !ok {
		return false
	}
	for _, item := range list {
		if item == userValue {
			return true
		}
	}
	return false
}

func notOneOfHandler(e *Evaluator, getAttr Attr, userValue string, hasValue bool, value string) bool {
	if !hasValue {
		return true
	}
	return !isOneOfHandler(e, getAttr, userValue, hasValue, value)
}

func startsWithHandler(_ *Evaluator, _ Attr, userValue string, hasValue bool, value string) bool {
	if !hasValue {
		return false
	}
	return strings.HasPrefix(userValue, value)
}

func endsWithHandler(_ *Evaluator, _ Attr, userValue string, hasValue bool, value string) bool {
	if !hasValue {
		return false
	}
	return strings.HasSuffix(userValue, value)
}

func isTrueHandler(_ *Evaluator, _ Attr, userValue string, hasValue bool, _ string) bool {
	return hasValue && strings.EqualFold(userValue, "true")
}

func isFalseHandler(_ *Evaluator, _ Attr, userValue string, hasValue bool, _ string) bool {
	return hasValue && strings.EqualFold(userValue, "false")
}

func matchRegexHandler(_ *Evaluator, _ Attr, userValue string, hasValue bool, value string) bool {
	if !hasValue {
		return false
	}
	rx, ok := compiledRegex(value)
	if !ok {
		return false
	}
	return rx.MatchString(userValue)
}

func notMatchRegexHandler(e *Evaluator, getAttr Attr, userValue string, hasValue bool, value string) bool {
	if !hasValue {
		return true
	}
	return !matchRegexHandler(e, getAttr, userValue, hasValue, value)
}

func compiledRegex(pattern string) (*regexp.Regexp, bool) {
	if cached, ok := regexCache.Load(pattern); ok {
		rx, _ := cached.(*regexp.Regexp)
		return rx, rx != nil
	}
	rx, err := regexp.Compile(pattern)
	if err != nil {
		return nil, false
	}
	regexCache.Store(pattern, rx)
	return rx, true
}

// userInSegmentHandler ignores the condition's own Property/userValue: the
// original SDK hardcodes the user's keyid for segment membership
// regardless of what property the condition happens to carry (wire data
// even arrives with Property holding the operator's own display string,
// e.g. {property:"User is in segment", op:""}), so the keyid is always
// resolved fresh via getAttr("keyid").
func userInSegmentHandler(e *Evaluator, getAttr Attr, _ string, _ bool, value string) bool {
	keyID, ok := getAttr("keyid")
	if !ok {
		return false
	}
	segmentKeys, ok := decodeStringArray(value)
	if !ok {
		return false
	}
	for _, key := range segmentKeys {
		if e.userBelongsToSegment(getAttr, keyID, key) {
			return true
		}
	}
	return false
}

func userNotInSegmentHandler(e *Evaluator, getAttr Attr, userValue string, hasValue bool, value string) bool {
	return !userInSegmentHandler(e, getAttr, userValue, hasValue, value)
}

// userBelongsToSegment reports whether keyID is a member of the segment:
// not explicitly excluded, and either explicitly included or matched by
// one of the segment's own rules. getAttr is the evaluation's real
// attribute resolver, not a keyid-only stub, so a segment's own rules can
// test any user attribute, not just keyid.
func (e *Evaluator) userBelongsToSegment(getAttr Attr, keyID, segmentKey string) bool {
	if e.getSegment == nil {
		return false
	}
	segment, ok := e.getSegment(segmentKey)
	if !ok {
		return false
	}
	for _, excluded := range segment.Excluded {
		if excluded == keyID {
			return false
		}
	}
	for _, included := range segment.Included {
		if included == keyID {
			return true
		}
	}
	for _, rule := range segment.Rules {
		if e.matchesAllConditions(rule.Conditions, getAttr) {
			return true
		}
	}
	return false
}

func decodeStringArray(raw string) ([]string, bool) {
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, false
	}
	return list, true
}
