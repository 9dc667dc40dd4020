// internal/common/taxonomy/store_test.go
package taxonomy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "wandersure-workers/internal/common/errors"
)

const testCatalog = `{
  "version": "test-1",
  "products": [
    {
      "id": "alpha",
      "displayName": "Alpha Basic",
      "insurer": "Alpha Insurance",
      "tier": "budget",
      "conditions": {"minAge": 1, "maxAge": 70, "acceptsPreExisting": false, "excludedActivities": ["Skiing"], "excludedCountries": ["North Korea"], "maxTripDays": 90},
      "benefits": {
        "medical": {"limitAmount": 50000, "currency": "sgd"}
      }
    },
    {
      "id": "beta",
      "displayName": "Beta Plus",
      "insurer": "Beta Insurance",
      "tier": "premium",
      "conditions": {"minAge": 0, "maxAge": 75, "acceptsPreExisting": true, "coveredConditions": ["diabetes"]},
      "benefits": {
        "medical": {"limitAmount": 150000, "currency": "SGD"},
        "baggage": {"limitAmount": 5000, "currency": "SGD"}
      },
      "riders": ["golf-cover", "pre-existing-cover"]
    }
  ]
}`

func writeCatalogFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseCatalog(t *testing.T) {
	catalog, err := ParseCatalog([]byte(testCatalog), "test")
	require.NoError(t, err)
	require.Len(t, catalog.Products, 2)

	// File order is preserved
	assert.Equal(t, "alpha", catalog.Products[0].ID)
	assert.Equal(t, "beta", catalog.Products[1].ID)

	// Currency is normalized to uppercase, exclusions to lowercase
	assert.Equal(t, "SGD", catalog.Products[0].Benefits["medical"].Currency)
	assert.Equal(t, []string{"skiing"}, catalog.Products[0].Conditions.ExcludedActivities)
	assert.Equal(t, []string{"north korea"}, catalog.Products[0].Conditions.ExcludedCountries)
}

func TestParseCatalogEmptyIsFatal(t *testing.T) {
	_, err := ParseCatalog([]byte(`{"version": "v", "products": []}`), "test")
	require.Error(t, err)

	stdErr, ok := err.(*apperrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeEmptyCatalog, stdErr.Code)
	assert.False(t, stdErr.Retryable)
}

func TestParseCatalogRejectsDuplicates(t *testing.T) {
	dup := `{
	  "version": "v",
	  "products": [
	    {"id": "alpha", "displayName": "A", "insurer": "X", "tier": "budget", "conditions": {}, "benefits": {"medical": {"limitAmount": 1, "currency": "SGD"}}},
	    {"id": "alpha", "displayName": "B", "insurer": "X", "tier": "budget", "conditions": {}, "benefits": {"medical": {"limitAmount": 1, "currency": "SGD"}}}
	  ]
	}`
	_, err := ParseCatalog([]byte(dup), "test")
	require.Error(t, err)

	stdErr, ok := err.(*apperrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeCatalogInvalid, stdErr.Code)
}

func TestParseCatalogRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing products", `{"version": "v"}`},
		{"bad tier", `{"version": "v", "products": [{"id": "a", "displayName": "A", "insurer": "X", "tier": "luxury", "conditions": {}, "benefits": {}}]}`},
		{"missing id", `{"version": "v", "products": [{"displayName": "A", "insurer": "X", "tier": "budget", "conditions": {}, "benefits": {}}]}`},
		{"no benefits", `{"version": "v", "products": [{"id": "a", "displayName": "A", "insurer": "X", "tier": "budget", "conditions": {}, "benefits": {}}]}`},
		{"not json", `not even close`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.body), "test")
			assert.Error(t, err)
		})
	}
}

func TestStoreLookups(t *testing.T) {
	path := writeCatalogFile(t, testCatalog)
	store, err := NewStoreFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 2, store.Count())
	assert.Equal(t, "test-1", store.Version())

	p, ok := store.Get("beta")
	require.True(t, ok)
	assert.Equal(t, "Beta Plus", p.DisplayName)
	assert.Equal(t, 150000.0, p.MedicalLimit())

	_, ok = store.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, 0, store.Rank("alpha"))
	assert.Equal(t, 1, store.Rank("beta"))
	assert.Equal(t, 2, store.Rank("missing"))
}

func TestStoreRefreshSwapsSnapshot(t *testing.T) {
	path := writeCatalogFile(t, testCatalog)
	store, err := NewStoreFromFile(path)
	require.NoError(t, err)

	updated := `{
	  "version": "test-2",
	  "products": [
	    {"id": "gamma", "displayName": "Gamma", "insurer": "G", "tier": "standard", "conditions": {}, "benefits": {"medical": {"limitAmount": 100000, "currency": "SGD"}}}
	  ]
	}`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	require.NoError(t, store.Refresh(path))

	assert.Equal(t, "test-2", store.Version())
	assert.Equal(t, 1, store.Count())
	_, ok := store.Get("alpha")
	assert.False(t, ok)
}

func TestStoreRefreshKeepsOldSnapshotOnError(t *testing.T) {
	path := writeCatalogFile(t, testCatalog)
	store, err := NewStoreFromFile(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"version": "v", "products": []}`), 0o644))
	require.Error(t, store.Refresh(path))

	// Previous generation keeps serving
	assert.Equal(t, "test-1", store.Version())
	assert.Equal(t, 2, store.Count())
}

func TestProductHelpers(t *testing.T) {
	catalog, err := ParseCatalog([]byte(testCatalog), "test")
	require.NoError(t, err)

	alpha := catalog.Products[0]
	assert.True(t, alpha.AgeEligible(35))
	assert.False(t, alpha.AgeEligible(0))
	assert.False(t, alpha.AgeEligible(71))
	assert.True(t, alpha.ExcludesActivity("Skiing"))
	assert.True(t, alpha.ExcludesActivity("skiing "))
	assert.False(t, alpha.ExcludesActivity("hiking"))

	assert.True(t, alpha.ExcludesCountry("north korea"))
	assert.True(t, alpha.ExcludesCountry("North Korea "))
	assert.False(t, alpha.ExcludesCountry("japan"))

	beta := catalog.Products[1]
	assert.True(t, beta.AgeEligible(0))
	assert.Equal(t, 0.0, beta.Benefits["baggage"].SubLimits["per_item"])

	// Riders waive matching exclusions; the slug match is case-insensitive.
	assert.True(t, beta.HasRiderFor("golf"))
	assert.True(t, beta.HasRiderFor("Pre-Existing"))
	assert.False(t, beta.HasRiderFor("skiing"))
	assert.False(t, alpha.HasRiderFor("golf"))
}

func TestStoreProductsReturnsCopy(t *testing.T) {
	path := writeCatalogFile(t, testCatalog)
	store, err := NewStoreFromFile(path)
	require.NoError(t, err)

	products := store.Products()
	products[0].ID = "mutated"

	p, ok := store.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", p.ID)
}
