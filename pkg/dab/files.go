package dab

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/ipld/go-ipld-prime"
	"github.com/ipld/go-ipld-prime/codec/json"

	"github.com/dataforge/dataforge/dfapi"
)

const (
	// MagicFilename_DatasetIndex marks a directory as a dataset and holds its metadata.
	MagicFilename_DatasetIndex = "index.json"

	// MagicFilename_CatalogMetadata sits at a catalog root and holds the format version.
	MagicFilename_CatalogMetadata = "catalog.meta.json"

	// SidecarSuffix is appended to a table's stem to name its metadata sidecar.
	SidecarSuffix = ".meta.json"
)

// IndexFilename returns the name of the per-channel catalog index file,
// e.g. "catalog-garden.feather".
func IndexFilename(channel dfapi.Channel) string {
	return fmt.Sprintf("catalog-%s.feather", channel)
}

// SidecarPath returns the metadata sidecar path for a table data file:
// the extension is replaced by the sidecar suffix.
// If the table is stored at "mytable.csv", the sidecar is at "mytable.meta.json".
func SidecarPath(dataPath string) string {
	return Stem(dataPath) + SidecarSuffix
}

// Stem strips a single extension from the path, if it has one.
func Stem(path string) string {
	if i := strings.LastIndex(path, "."); i > strings.LastIndex(path, "/") {
		return path[:i]
	}
	return path
}

// GuessFormat inspects a table data file path and reports its format.
//
// Errors:
//
//    - dataforge-error-invalid -- when the extension names no known format
func GuessFormat(path string) (dfapi.TableFormat, error) {
	switch {
	case strings.HasSuffix(path, ".feather"):
		return dfapi.FormatFeather, nil
	case strings.HasSuffix(path, ".csv"):
		return dfapi.FormatCSV, nil
	}
	return "", dfapi.ErrorInvalid(fmt.Sprintf("no known table format for path %q", path),
		[2]string{"path", path})
}

// DatasetMetaFromFile loads a dfapi.DatasetMeta from a filesystem path.
//
// In typical usage, the filename parameter will have the suffix of MagicFilename_DatasetIndex.
//
// Errors:
//
//    - dataforge-error-io -- for errors reading from fsys.
//    - dataforge-error-serialization -- for errors parsing the data as a DatasetMeta.
func DatasetMetaFromFile(fsys fs.FS, filename string) (*dfapi.DatasetMeta, error) {
	const situation = "loading dataset metadata"
	if strings.HasPrefix(filename, "/") {
		filename = filename[1:]
	}
	f, err := fs.ReadFile(fsys, filename)
	if err != nil {
		return nil, dfapi.ErrorIo(situation, filename, err)
	}
	meta, err := dfapi.UnmarshalDatasetMeta(f)
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// TableMetaFromFile loads a dfapi.TableMeta from a filesystem path.
//
// In typical usage, the filename parameter will have the suffix of SidecarSuffix.
//
// Errors:
//
//    - dataforge-error-io -- for errors reading from fsys.
//    - dataforge-error-serialization -- for errors parsing the data as a TableMeta.
func TableMetaFromFile(fsys fs.FS, filename string) (*dfapi.TableMeta, error) {
	const situation = "loading table metadata"
	if strings.HasPrefix(filename, "/") {
		filename = filename[1:]
	}
	f, err := fs.ReadFile(fsys, filename)
	if err != nil {
		return nil, dfapi.ErrorIo(situation, filename, err)
	}
	meta, err := dfapi.UnmarshalTableMeta(f)
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// CatalogMetadataFromFile loads the catalog format metadata from a filesystem path.
//
// Errors:
//
//    - dataforge-error-io -- for errors reading from fsys.
//    - dataforge-error-catalog-parse -- for errors parsing the data.
func CatalogMetadataFromFile(fsys fs.FS, filename string) (*dfapi.CatalogMetadata, error) {
	if strings.HasPrefix(filename, "/") {
		filename = filename[1:]
	}
	f, err := fs.ReadFile(fsys, filename)
	if err != nil {
		return nil, dfapi.ErrorIo("loading catalog metadata", filename, err)
	}
	return ParseCatalogMetadata(filename, f)
}

// ParseCatalogMetadata parses the contents of a catalog.meta.json document.
//
// Errors:
//
//    - dataforge-error-catalog-parse -- for errors parsing the data.
func ParseCatalogMetadata(name string, serial []byte) (*dfapi.CatalogMetadata, error) {
	meta := dfapi.CatalogMetadata{}
	_, err := ipld.Unmarshal(serial, json.Decode, &meta, dfapi.TypeSystem.TypeByName("CatalogMetadata"))
	if err != nil {
		return nil, dfapi.ErrorCatalogParse(name, err)
	}
	return &meta, nil
}

// MarshalCatalogMetadata serializes a catalog.meta.json document.
//
// Errors:
//
//    - dataforge-error-serialization -- when serializing fails
func MarshalCatalogMetadata(meta *dfapi.CatalogMetadata) ([]byte, error) {
	serial, err := ipld.Marshal(json.Encode, meta, dfapi.TypeSystem.TypeByName("CatalogMetadata"))
	if err != nil {
		return nil, dfapi.ErrorSerialization("failed to serialize catalog metadata", err)
	}
	return serial, nil
}
