package tracing

// Span attribute keys used by dataforge
const (
	AttrKeyErrorCode      = "dataforge.error.code"
	AttrKeyCatalogUri     = "dataforge.catalog.uri"
	AttrKeyCatalogChannel = "dataforge.catalog.channel"
	AttrKeyDatasetPath    = "dataforge.dataset.path"
	AttrKeyTableName      = "dataforge.table.name"
	AttrKeyTableFormat    = "dataforge.table.format"
	AttrKeyWarehouseKey   = "dataforge.warehouse.key"
)
