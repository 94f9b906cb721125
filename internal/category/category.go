// Package category defines the fixed set of data kinds the SDK stores and
// synchronizes: feature flags, segments and an internal test category.
package category

// Category names one of the kinds of data the streaming pipeline and data
// store exchange. The set is fixed and known at compile time; the server
// never sends a category outside All.
type Category string

const (
	FeatureFlags Category = "featureFlags"
	Segments     Category = "segments"
	DataTests    Category = "datatests"
)

// All lists every category the SDK tracks, in the order a full sync
// payload should be applied.
var All = []Category{FeatureFlags, Segments, DataTests}

// Names returns the string form of All, used to validate inbound payloads.
func Names() []string {
	names := make([]string, len(All))
	for i, c := range All {
		names[i] = string(c)
	}
	return names
}

// Valid reports whether c is a category the SDK recognizes.
func Valid(c Category) bool {
	for _, known := range All {
		if known == c {
			return true
		}
	}
	return false
}
