package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibe/internal/modules/activity"
	"vibe/internal/modules/venue"
)

func TestLoadFile(t *testing.T) {
	tax, err := LoadFile("testdata/taxonomy.json")
	require.NoError(t, err)

	intents := tax.Intents()
	require.Len(t, intents, 4)
	assert.Equal(t, "ridge_hike", intents[0].ID, "load order is preserved")

	hike, ok := tax.Intent("ridge_hike")
	require.True(t, ok)
	assert.Equal(t, activity.CategoryTrails, hike.Category)

	m, ok := tax.Mapping("Hiking")
	require.True(t, ok)
	assert.True(t, m.Supports(venue.ProviderCommercialPlaces))
	assert.True(t, m.Supports(venue.ProviderOpenGeodata))
	assert.True(t, m.Supports(venue.ProviderPOIIndex))

	spa, ok := tax.Mapping("spa")
	require.True(t, ok)
	assert.False(t, spa.Supports(venue.ProviderOpenGeodata))
}

func TestReliabilityFallbacks(t *testing.T) {
	tax, err := LoadFile("testdata/taxonomy.json")
	require.NoError(t, err)

	assert.Equal(t, 0.95, tax.Reliability(venue.ProviderPOIIndex, activity.CategoryCulture), "configured value")
	assert.Equal(t, 0.9, tax.Reliability(venue.ProviderOpenGeodata, activity.CategoryTrails), "category override")
	assert.Equal(t, 0.9, tax.Reliability(venue.ProviderCommercialPlaces, activity.CategoryWellness), "provider baseline")
	assert.Equal(t, 0.5, tax.Reliability(venue.Provider("unknown"), activity.CategoryWellness))
}

func TestNewRejectsBadIntents(t *testing.T) {
	_, err := New([]activity.Intent{{ID: "a", Category: activity.CategoryNature}, {ID: "a", Category: activity.CategoryNature}}, nil, nil)
	assert.ErrorIs(t, err, ErrDuplicateIntent)

	_, err = New([]activity.Intent{{ID: "b", Category: "shopping"}}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidIntent)
}

func TestResolve(t *testing.T) {
	tax, err := LoadFile("testdata/taxonomy.json")
	require.NoError(t, err)

	got, err := tax.Resolve("thermal_spa", "ridge_hike")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "thermal_spa", got[0].ID)

	_, err = tax.Resolve("ridge_hike", "scuba")
	assert.ErrorIs(t, err, ErrUnknownIntent)
}
