package dfapi

import (
	"fmt"
	"strconv"

	"github.com/ipfs/go-cid"
	"github.com/ipld/go-ipld-prime"
	"github.com/ipld/go-ipld-prime/codec/json"
	cidlink "github.com/ipld/go-ipld-prime/linking/cid"
	"github.com/ipld/go-ipld-prime/node/bindnode"
	"github.com/ipld/go-ipld-prime/schema"
)

func init() {
	TypeSystem.Accumulate(schema.SpawnStruct("Source",
		[]schema.StructField{
			schema.SpawnStructField("name", "String", true, false),
			schema.SpawnStructField("description", "String", true, false),
			schema.SpawnStructField("url", "String", true, false),
			schema.SpawnStructField("sourceDataUrl", "String", true, false),
			schema.SpawnStructField("mirrorDataUrl", "String", true, false),
			schema.SpawnStructField("dateAccessed", "String", true, false),
			schema.SpawnStructField("publicationDate", "String", true, false),
			schema.SpawnStructField("publicationYear", "Int", true, false),
		},
		schema.SpawnStructRepresentationMap(map[string]string{
			"sourceDataUrl":   "source_data_url",
			"mirrorDataUrl":   "mirror_data_url",
			"dateAccessed":    "date_accessed",
			"publicationDate": "publication_date",
			"publicationYear": "publication_year",
		})))
	TypeSystem.Accumulate(schema.SpawnStruct("License",
		[]schema.StructField{
			schema.SpawnStructField("name", "String", true, false),
			schema.SpawnStructField("url", "String", true, false),
		},
		schema.SpawnStructRepresentationMap(nil)))
	TypeSystem.Accumulate(schema.SpawnList("List__Source", "Source", false))
	TypeSystem.Accumulate(schema.SpawnList("List__License", "License", false))
	TypeSystem.Accumulate(schema.SpawnList("List__String", "String", false))
	TypeSystem.Accumulate(schema.SpawnMap("Map__String__String",
		"String", "String", false))
	TypeSystem.Accumulate(schema.SpawnStruct("VariableMeta",
		[]schema.StructField{
			schema.SpawnStructField("title", "String", true, false),
			schema.SpawnStructField("description", "String", true, false),
			schema.SpawnStructField("sources", "List__Source", false, false),
			schema.SpawnStructField("licenses", "List__License", false, false),
			schema.SpawnStructField("unit", "String", true, false),
			schema.SpawnStructField("shortUnit", "String", true, false),
			schema.SpawnStructField("display", "Map__String__String", true, false),
		},
		schema.SpawnStructRepresentationMap(map[string]string{
			"shortUnit": "short_unit",
		})))
	TypeSystem.Accumulate(schema.SpawnStruct("DatasetMeta",
		[]schema.StructField{
			schema.SpawnStructField("namespace", "String", true, false),
			schema.SpawnStructField("shortName", "String", true, false),
			schema.SpawnStructField("title", "String", true, false),
			schema.SpawnStructField("description", "String", true, false),
			schema.SpawnStructField("sources", "List__Source", false, false),
			schema.SpawnStructField("licenses", "List__License", false, false),
			schema.SpawnStructField("isPublic", "Bool", false, false),
			schema.SpawnStructField("version", "String", true, false),
			schema.SpawnStructField("sourceChecksum", "String", true, false),
		},
		schema.SpawnStructRepresentationMap(map[string]string{
			"shortName":      "short_name",
			"isPublic":       "is_public",
			"sourceChecksum": "source_checksum",
		})))
	TypeSystem.Accumulate(schema.SpawnMap("Map__String__VariableMeta",
		"String", "VariableMeta", false))
	TypeSystem.Accumulate(schema.SpawnStruct("TableMeta",
		[]schema.StructField{
			schema.SpawnStructField("shortName", "String", true, false),
			schema.SpawnStructField("title", "String", true, false),
			schema.SpawnStructField("description", "String", true, false),
			schema.SpawnStructField("primaryKey", "List__String", false, false),
			schema.SpawnStructField("dataset", "DatasetMeta", true, false),
			schema.SpawnStructField("fields", "Map__String__VariableMeta", false, false),
		},
		schema.SpawnStructRepresentationMap(map[string]string{
			"shortName":  "short_name",
			"primaryKey": "primary_key",
		})))
}

// Source describes where the data in a table ultimately came from.
// All fields are optional; absent fields are omitted when serialized.
type Source struct {
	Name            *string
	Description     *string
	Url             *string
	SourceDataUrl   *string
	MirrorDataUrl   *string
	DateAccessed    *string
	PublicationDate *string
	PublicationYear *int64
}

type License struct {
	Name *string
	Url  *string
}

// VariableMeta is the metadata envelope for a single column of a table.
type VariableMeta struct {
	Title       *string
	Description *string
	Sources     []Source
	Licenses    []License
	Unit        *string
	ShortUnit   *string
	Display     *struct {
		Keys   []string
		Values map[string]string
	}
}

// DatasetMeta is the metadata for an entire dataset,
// kept in JSON at the dataset directory root (e.g. mydataset/index.json).
type DatasetMeta struct {
	Namespace   *string
	ShortName   *string
	Title       *string
	Description *string
	Sources     []Source
	Licenses    []License
	IsPublic    bool
	Version     *string
	// a checksum of the ingredients used to make this dataset
	SourceChecksum *string
}

// TableMeta is the metadata envelope for a single table,
// kept in a JSON sidecar next to the data file.
type TableMeta struct {
	ShortName   *string
	Title       *string
	Description *string
	PrimaryKey  []string
	// a reference back to the dataset
	Dataset *DatasetMeta
	// metadata for individual columns
	Fields struct {
		Keys   []string
		Values map[string]VariableMeta
	}
}

// NewDatasetMeta returns an empty DatasetMeta with defaults applied.
// Datasets are public unless declared otherwise.
func NewDatasetMeta() DatasetMeta {
	return DatasetMeta{IsPublic: true}
}

// EffectiveVersion resolves the version of a dataset.
// An explicit version wins; otherwise, when the dataset has exactly one
// source, that source's publication date (or year) is used.
// Returns an empty string when no version can be determined.
func (meta *DatasetMeta) EffectiveVersion() string {
	if meta.Version != nil {
		return *meta.Version
	}
	if len(meta.Sources) == 1 {
		source := meta.Sources[0]
		if source.PublicationDate != nil {
			return *source.PublicationDate
		}
		if source.PublicationYear != nil {
			return strconv.FormatInt(*source.PublicationYear, 10)
		}
	}
	return ""
}

// CheckedName returns the short name of the table, or errors if it has none.
//
// Errors:
//
//    - dataforge-error-invalid -- when the table has no short_name
func (meta *TableMeta) CheckedName() (string, error) {
	if meta.ShortName == nil || *meta.ShortName == "" {
		return "", ErrorInvalid("table has no short_name")
	}
	return *meta.ShortName, nil
}

// SetField records metadata for the named column, replacing any prior value.
func (meta *TableMeta) SetField(name string, v VariableMeta) {
	if meta.Fields.Values == nil {
		meta.Fields.Values = map[string]VariableMeta{}
	}
	if _, exists := meta.Fields.Values[name]; !exists {
		meta.Fields.Keys = append(meta.Fields.Keys, name)
	}
	meta.Fields.Values[name] = v
}

// Field returns the metadata for the named column.
// Columns without recorded metadata get an empty envelope.
func (meta *TableMeta) Field(name string) VariableMeta {
	if meta.Fields.Values == nil {
		return VariableMeta{}
	}
	return meta.Fields.Values[name]
}

type MetaCID string

func (meta *DatasetMeta) Cid() MetaCID {
	return computeCid(meta, "DatasetMeta")
}

func (meta *TableMeta) Cid() MetaCID {
	return computeCid(meta, "TableMeta")
}

func computeCid(ptr interface{}, typeName string) MetaCID {
	node := bindnode.Wrap(ptr, TypeSystem.TypeByName(typeName))

	lnk, errRaw := LinkSystem.ComputeLink(cidlink.LinkPrototype{Prefix: cid.Prefix{
		Version:  1,    // Usually '1'.
		Codec:    0x71, // 0x71 means "dag-cbor" -- See the multicodecs table: https://github.com/multiformats/multicodec/
		MhType:   0x13, // 0x13 means "sha2-512" -- See the multicodecs table: https://github.com/multiformats/multicodec/
		MhLength: 64,   // sha2-512 hash has a 64-byte sum.
	}}, node.(schema.TypedNode).Representation())
	if errRaw != nil {
		// panic! this should never fail unless IPLD is broken
		panic(fmt.Sprintf("Fatal IPLD Error: lsys.ComputeLink failed for %s: %s", typeName, errRaw))
	}
	return MetaCID(lnk.String())
}

// MarshalDatasetMeta serializes dataset metadata to JSON.
//
// Errors:
//
//    - dataforge-error-serialization -- when serializing the metadata fails
func MarshalDatasetMeta(meta *DatasetMeta) ([]byte, error) {
	serial, err := ipld.Marshal(json.Encode, meta, TypeSystem.TypeByName("DatasetMeta"))
	if err != nil {
		return nil, ErrorSerialization("failed to serialize dataset metadata", err)
	}
	return serial, nil
}

// UnmarshalDatasetMeta parses dataset metadata from JSON.
//
// Errors:
//
//    - dataforge-error-serialization -- when parsing the metadata fails
func UnmarshalDatasetMeta(serial []byte) (*DatasetMeta, error) {
	meta := DatasetMeta{}
	_, err := ipld.Unmarshal(serial, json.Decode, &meta, TypeSystem.TypeByName("DatasetMeta"))
	if err != nil {
		return nil, ErrorSerialization("failed to parse dataset metadata", err)
	}
	return &meta, nil
}

// MarshalTableMeta serializes table metadata to JSON.
//
// Errors:
//
//    - dataforge-error-serialization -- when serializing the metadata fails
func MarshalTableMeta(meta *TableMeta) ([]byte, error) {
	serial, err := ipld.Marshal(json.Encode, meta, TypeSystem.TypeByName("TableMeta"))
	if err != nil {
		return nil, ErrorSerialization("failed to serialize table metadata", err)
	}
	return serial, nil
}

// UnmarshalTableMeta parses table metadata from JSON.
//
// Errors:
//
//    - dataforge-error-serialization -- when parsing the metadata fails
func UnmarshalTableMeta(serial []byte) (*TableMeta, error) {
	meta := TableMeta{}
	_, err := ipld.Unmarshal(serial, json.Decode, &meta, TypeSystem.TypeByName("TableMeta"))
	if err != nil {
		return nil, ErrorSerialization("failed to parse table metadata", err)
	}
	return &meta, nil
}
