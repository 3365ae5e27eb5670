package catalog

import (
	"fmt"

	"github.com/fieldsight/spectral-etl/internal/domain"
)

// Key layout of the catalog within the object store.
const (
	// RootKey holds the root catalog record.
	RootKey = "catalog/catalog.json"
	// CollectionKey holds the field-indices collection record.
	CollectionKey = "catalog/collection.json"
	// itemPrefix is the prefix below which all item records live.
	itemPrefix = "catalog/items"
)

// ItemKey derives the deterministic item key for a (field, index, date)
// triple. Each component is its own path segment, so field ids containing
// hyphens round-trip unambiguously.
func ItemKey(fieldID string, kind domain.IndexKind, date string) string {
	return fmt.Sprintf("%s/%s/%s/%s.json", itemPrefix, fieldID, kind, date)
}
