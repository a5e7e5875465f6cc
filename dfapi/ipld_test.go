package dfapi

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

// bindnode panics on a nil schema type, so every type the metadata
// structs reference has to resolve, the prelude primitives included.
func TestTypeSystemResolvesAllTypes(t *testing.T) {
	for _, name := range []string{
		"String", "Int", "Bool",
		"Source", "License", "VariableMeta",
		"DatasetMeta", "TableMeta", "CatalogMetadata",
		"List__String",
	} {
		qt.Check(t, TypeSystem.TypeByName(name) != nil, qt.Equals, true,
			qt.Commentf("type %q did not resolve", name))
	}
}
