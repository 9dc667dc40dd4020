// internal/common/taxonomy/loader.go
package taxonomy

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"

	apperrors "wandersure-workers/internal/common/errors"
)

// catalogSchema is the structural contract a catalog file must satisfy
// before any product reaches the store.
const catalogSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "products"],
  "properties": {
    "version": {"type": "string"},
    "lastUpdated": {"type": "string"},
    "products": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "displayName", "insurer", "tier", "conditions", "benefits"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "displayName": {"type": "string", "minLength": 1},
          "insurer": {"type": "string"},
          "tier": {"type": "string", "enum": ["budget", "standard", "premium"]},
          "segments": {"type": "array", "items": {"type": "string"}},
          "conditions": {
            "type": "object",
            "properties": {
              "minAge": {"type": "integer", "minimum": 0},
              "maxAge": {"type": "integer", "minimum": 0},
              "acceptsPreExisting": {"type": "boolean"},
              "coveredConditions": {"type": "array", "items": {"type": "string"}},
              "excludedActivities": {"type": "array", "items": {"type": "string"}},
              "excludedCountries": {"type": "array", "items": {"type": "string"}},
              "maxTripDays": {"type": "integer", "minimum": 0}
            }
          },
          "benefits": {
            "type": "object",
            "minProperties": 1,
            "additionalProperties": {
              "type": "object",
              "required": ["limitAmount", "currency"],
              "properties": {
                "limitAmount": {"type": "number", "minimum": 0},
                "currency": {"type": "string", "minLength": 3, "maxLength": 3},
                "subLimits": {"type": "object", "additionalProperties": {"type": "number"}},
                "exclusions": {"type": "array", "items": {"type": "string"}},
                "waitingPeriodDays": {"type": "integer", "minimum": 0}
              }
            }
          },
          "riders": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

// Catalog is the on-disk catalog document.
type Catalog struct {
	Version     string    `json:"version"`
	LastUpdated string    `json:"lastUpdated,omitempty"`
	Products    []Product `json:"products"`
}

// LoadCatalog reads, validates and normalizes a catalog file. An empty
// product list is a fatal configuration error, not a degraded state.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return ParseCatalog(data, path)
}

// ParseCatalog validates and decodes raw catalog bytes.
func ParseCatalog(data []byte, source string) (*Catalog, error) {
	schemaLoader := gojsonschema.NewStringLoader(catalogSchema)
	docLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, apperrors.NewCatalogInvalidError(err.Error())
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return nil, apperrors.NewCatalogInvalidError(strings.Join(problems, "; "))
	}

	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, apperrors.NewCatalogInvalidError(err.Error())
	}

	if len(catalog.Products) == 0 {
		return nil, apperrors.NewEmptyCatalogError(source)
	}

	seen := make(map[string]bool, len(catalog.Products))
	for i := range catalog.Products {
		p := &catalog.Products[i]
		if seen[p.ID] {
			return nil, apperrors.NewCatalogInvalidError(fmt.Sprintf("duplicate product id: %s", p.ID))
		}
		seen[p.ID] = true
		normalizeProduct(p)
	}

	return &catalog, nil
}

func normalizeProduct(p *Product) {
	for name, b := range p.Benefits {
		b.Currency = strings.ToUpper(strings.TrimSpace(b.Currency))
		p.Benefits[name] = b
	}
	for i, a := range p.Conditions.ExcludedActivities {
		p.Conditions.ExcludedActivities[i] = strings.ToLower(strings.TrimSpace(a))
	}
	for i, c := range p.Conditions.ExcludedCountries {
		p.Conditions.ExcludedCountries[i] = strings.ToLower(strings.TrimSpace(c))
	}
}
