package streaming

import (
	"testing"

	"github.com/TimurManjosov/fbgo-sdk/internal/category"
)

func TestDecodeFlagSynthesizesVariationMap(t *testing.T) {
	w := wireFlag{
		ID:        "flag-1",
		Name:      "Flag One",
		IsEnabled: true,
		Variations: []wireVariation{
			{ID: "v1", Value: "true"},
			{ID: "v2", Value: "false"},
		},
		UpdatedAt: "2024-01-01T00:00:00Z",
	}

	key, entity, flag, err := decodeFlag(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "flag-1" {
		t.Fatalf("expected key flag-1, got %q", key)
	}
	if entity.IsArchived {
		t.Fatalf("expected a live entity")
	}
	if flag.VariationMap["v1"] != "true" || flag.VariationMap["v2"] != "false" {
		t.Fatalf("expected variationMap synthesized from variations, got %v", flag.VariationMap)
	}
}

func TestDecodeFlagArchivedIsCompactedToTombstone(t *testing.T) {
	w := wireFlag{ID: "flag-2", IsArchived: true, UpdatedAt: "2024-01-01T00:00:00Z"}

	key, entity, flag, err := decodeFlag(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "flag-2" || !entity.IsArchived {
		t.Fatalf("expected archived tombstone for flag-2, got entity=%+v", entity)
	}
	if flag != nil {
		t.Fatalf("expected no typed definition for an archived flag")
	}
}

func TestDecodeFlagRejectsMissingUpdatedAt(t *testing.T) {
	if _, _, _, err := decodeFlag(wireFlag{ID: "flag-3"}); err == nil {
		t.Fatalf("expected an error for a missing updatedAt")
	}
}

func TestDecodePayloadGroupsByCategory(t *testing.T) {
	data := syncData{
		EventType: "full",
		FeatureFlags: []wireFlag{
			{ID: "f1", UpdatedAt: "2024-01-01T00:00:00Z"},
		},
		Segments: []wireSeg{
			{ID: "s1", UpdatedAt: "2024-01-01T00:00:00Z"},
		},
	}

	out, err := decodePayload(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := out.entities[category.FeatureFlags]["f1"]; !ok {
		t.Fatalf("expected f1 under the featureFlags category")
	}
	if _, ok := out.entities[category.Segments]["s1"]; !ok {
		t.Fatalf("expected s1 under the segments category")
	}
	if len(out.flags) != 1 || len(out.segments) != 1 {
		t.Fatalf("expected one typed flag and one typed segment, got %d/%d", len(out.flags), len(out.segments))
	}
}

func TestSortedFlagKeysByTimestampOrdersAscending(t *testing.T) {
	flags := []wireFlag{
		{ID: "late", UpdatedAt: "2024-06-01T00:00:00Z"},
		{ID: "early", UpdatedAt: "2024-01-01T00:00:00Z"},
	}
	sorted := sortedFlagKeysByTimestamp(flags)
	if sorted[0].ID != "early" || sorted[1].ID != "late" {
		t.Fatalf("expected ascending order by updatedAt, got %v", sorted)
	}
}

func TestParseEnvelopeDecodesMessageType(t *testing.T) {
	raw := []byte(`{"messageType":"data-sync","data":{"eventType":"full","featureFlags":[],"segments":[]}}`)
	env, err := parseEnvelope(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.MessageType != "data-sync" {
		t.Fatalf("expected messageType data-sync, got %q", env.MessageType)
	}
	if env.Data.EventType != "full" {
		t.Fatalf("expected eventType full, got %q", env.Data.EventType)
	}
}
