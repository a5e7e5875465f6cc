package dfapi

import (
	"regexp"

	"github.com/ipld/go-ipld-prime/schema"
)

func init() {
	TypeSystem.Accumulate(schema.SpawnStruct("CatalogMetadata",
		[]schema.StructField{
			schema.SpawnStructField("formatVersion", "Int", false, false),
		},
		schema.SpawnStructRepresentationMap(map[string]string{
			"formatVersion": "format_version",
		})))
}

// CatalogFormatVersion is incremented on breaking changes to the catalog
// layout, to require clients to update.
const CatalogFormatVersion = 2

// DefaultCatalogURI is the location of the default remote catalog.
const DefaultCatalogURI = "https://catalog.dataforge.dev/"

// Channel is the top level of the catalog hierarchy, grouping datasets by
// their stage of processing.
type Channel string

const (
	ChannelGarden      Channel = "garden"
	ChannelMeadow      Channel = "meadow"
	ChannelBackport    Channel = "backport"
	ChannelOpenNumbers Channel = "open_numbers"
	ChannelExamples    Channel = "examples"
	ChannelExplorers   Channel = "explorers"
)

// AllChannels lists every channel a catalog may contain.
var AllChannels = []Channel{
	ChannelGarden,
	ChannelMeadow,
	ChannelBackport,
	ChannelOpenNumbers,
	ChannelExamples,
	ChannelExplorers,
}

// DefaultChannels is what catalogs load when the caller does not say otherwise.
var DefaultChannels = []Channel{ChannelGarden}

// TableFormat names a serialization format for table data files.
type TableFormat string

const (
	FormatFeather TableFormat = "feather" // arrow IPC file format
	FormatCSV     TableFormat = "csv"
)

// AllowedFormats lists the formats tables can be written in.
var AllowedFormats = []TableFormat{FormatFeather, FormatCSV}

// DefaultFormats is what datasets write when the caller does not say otherwise.
var DefaultFormats = []TableFormat{FormatFeather}

// CatalogMetadata is the contents of the catalog.meta.json file at a
// catalog root, local or remote.
type CatalogMetadata struct {
	FormatVersion int64
}

// TableRef is one row of the catalog index: everything needed to find,
// display, and load a single table.
type TableRef struct {
	Table      string
	Dataset    string
	Version    string
	Namespace  string
	Channel    Channel
	IsPublic   bool
	Dimensions []string // the table's primary key
	Path       string   // relative to the catalog root, without extension
	Format     TableFormat
	Checksum   string
}

// NameFormat constrains dataset, table, and column names.
// Names are underscore-cased: see the names package for normalization.
const NameFormat = `^[a-z_][a-z0-9_]*$`

var reName = regexp.MustCompile(NameFormat)

// ValidName reports whether a name is in canonical underscore form.
func ValidName(name string) bool {
	return reName.MatchString(name)
}
