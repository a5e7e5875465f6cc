package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/facette/natsort"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/dataforge/dataforge/dfapi"
	"github.com/dataforge/dataforge/pkg/dab"
	"github.com/dataforge/dataforge/pkg/names"
	"github.com/dataforge/dataforge/pkg/table"
)

// Dataset is a directory of tables sharing common metadata.
// The directory is marked by an index.json file holding the metadata;
// each table in it is a data file plus a metadata sidecar.
type Dataset struct {
	// Path is the dataset directory, as an absolute or os-relative path.
	Path string
	Meta dfapi.DatasetMeta
}

// CreateDataset makes a new empty dataset directory at the given path.
// An existing dataset at that path is wiped and replaced. A directory
// that exists but is not a dataset is left alone.
//
// Errors:
//
//    - dataforge-error-dataset-invalid -- when the path exists and is not
//      a dataset directory
//    - dataforge-error-io -- when filesystem operations fail
func CreateDataset(path string) (*Dataset, error) {
	if _, err := os.Stat(path); err == nil {
		if !IsDatasetDir(path) {
			return nil, dfapi.ErrorDatasetInvalid(path,
				"directory exists and is not a dataset; refusing to overwrite")
		}
		if err := os.RemoveAll(path); err != nil {
			return nil, dfapi.ErrorIo("failed to remove prior dataset", path, err)
		}
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, dfapi.ErrorIo("failed to create dataset directory", path, err)
	}
	d := &Dataset{Path: path, Meta: dfapi.NewDatasetMeta()}
	if err := d.Save(); err != nil {
		return nil, err
	}
	return d, nil
}

// OpenDataset loads an existing dataset from a directory.
//
// Errors:
//
//    - dataforge-error-dataset-invalid -- when the directory has no index file
//    - dataforge-error-io -- when reading fails
//    - dataforge-error-serialization -- when the index file does not parse
func OpenDataset(path string) (*Dataset, error) {
	if !IsDatasetDir(path) {
		return nil, dfapi.ErrorDatasetInvalid(path, "directory has no dataset index file")
	}
	meta, err := dab.DatasetMetaFromFile(os.DirFS(path), dab.MagicFilename_DatasetIndex)
	if err != nil {
		return nil, err
	}
	return &Dataset{Path: path, Meta: *meta}, nil
}

// IsDatasetDir reports whether a directory is marked as a dataset.
func IsDatasetDir(path string) bool {
	fi, err := os.Stat(filepath.Join(path, dab.MagicFilename_DatasetIndex))
	return err == nil && !fi.IsDir()
}

// WriteTable adds a table to the dataset, writing it in each requested
// format. The table and its column names must be in snake_case. The
// dataset's metadata is stamped onto the table's sidecar.
//
// Errors:
//
//    - dataforge-error-invalid -- when the table has no short name
//    - dataforge-error-name -- when the table or a column has a
//      non-snake_case name
//    - dataforge-error-serialization -- when encoding fails
//    - dataforge-error-io -- when writing fails
func (d *Dataset) WriteTable(t *table.Table, formats ...dfapi.TableFormat) error {
	name, err := t.Meta.CheckedName()
	if err != nil {
		return err
	}
	if err := names.ValidateUnderscore(name, "table short name"); err != nil {
		return err
	}
	for _, col := range t.Columns() {
		if err := names.ValidateUnderscore(col, "column name"); err != nil {
			return err
		}
	}
	if len(formats) == 0 {
		formats = dfapi.DefaultFormats
	}
	// The checksum covers the sidecars, so the dataset copy embedded in
	// them must never carry the checksum itself.
	metaCopy := d.Meta
	metaCopy.SourceChecksum = nil
	t.Meta.Dataset = &metaCopy
	for _, format := range formats {
		switch format {
		case dfapi.FormatFeather:
			if err := table.WriteFeatherFile(t, filepath.Join(d.Path, name+".feather")); err != nil {
				return err
			}
		case dfapi.FormatCSV:
			if err := table.WriteCSVFile(t, filepath.Join(d.Path, name+".csv")); err != nil {
				return err
			}
		default:
			return dfapi.ErrorInvalid(
				fmt.Sprintf("unknown table format %q", format),
				[2]string{"format", string(format)})
		}
	}
	return nil
}

// Table loads a table from the dataset by short name.
// When the table is stored in several formats, feather wins.
//
// Errors:
//
//    - dataforge-error-missing -- when the dataset has no such table
//    - dataforge-error-io -- when reading fails
//    - dataforge-error-serialization -- when parsing fails
func (d *Dataset) Table(name string) (*table.Table, error) {
	fsys := os.DirFS(d.Path)
	if _, err := os.Stat(filepath.Join(d.Path, name+".feather")); err == nil {
		return table.ReadFeatherFile(fsys, name+".feather")
	}
	if _, err := os.Stat(filepath.Join(d.Path, name+".csv")); err == nil {
		return table.ReadCSVFile(fsys, name+".csv")
	}
	return nil, dfapi.ErrorTableMissing(name, strings.Join(d.TableNames(), ", "))
}

// Has reports whether the dataset contains a table of the given short name.
func (d *Dataset) Has(name string) bool {
	for _, have := range d.TableNames() {
		if have == name {
			return true
		}
	}
	return false
}

// TableNames lists the short names of the dataset's tables, in natural
// sort order.
func (d *Dataset) TableNames() []string {
	seen := map[string]struct{}{}
	var result []string
	for _, f := range d.dataFiles() {
		name := dab.Stem(f)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}
	natsort.Sort(result)
	return result
}

// dataFiles lists the table data files in the dataset directory, sorted.
func (d *Dataset) dataFiles() []string {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		return nil
	}
	var result []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := dab.GuessFormat(e.Name()); err == nil {
			result = append(result, e.Name())
		}
	}
	sort.Strings(result)
	return result
}

// Save writes the dataset's metadata to its index file and refreshes the
// dataset metadata stamped into each table sidecar.
//
// Errors:
//
//    - dataforge-error-serialization -- when encoding fails
//    - dataforge-error-io -- when writing fails
func (d *Dataset) Save() error {
	serial, err := dfapi.MarshalDatasetMeta(&d.Meta)
	if err != nil {
		return err
	}
	indexPath := filepath.Join(d.Path, dab.MagicFilename_DatasetIndex)
	if err := os.WriteFile(indexPath, serial, 0644); err != nil {
		return dfapi.ErrorIo("failed to write dataset index", indexPath, err)
	}
	return d.refreshSidecars()
}

// refreshSidecars rewrites the dataset metadata carried in each table's
// sidecar so it matches the dataset's current metadata.
func (d *Dataset) refreshSidecars() error {
	fsys := os.DirFS(d.Path)
	for _, f := range d.dataFiles() {
		sidecar := dab.SidecarPath(f)
		meta, err := dab.TableMetaFromFile(fsys, sidecar)
		if err != nil {
			return err
		}
		metaCopy := d.Meta
		metaCopy.SourceChecksum = nil
		meta.Dataset = &metaCopy
		serial, err := dfapi.MarshalTableMeta(meta)
		if err != nil {
			return err
		}
		sidecarPath := filepath.Join(d.Path, sidecar)
		if err := os.WriteFile(sidecarPath, serial, 0644); err != nil {
			return dfapi.ErrorIo("failed to write table metadata", sidecarPath, err)
		}
	}
	return nil
}

// Checksum computes a content identifier covering every file in the
// dataset except the index file itself. The result is a CIDv1 over a
// manifest of per-file CIDs, so any changed byte in any table changes
// the dataset checksum.
//
// Errors:
//
//    - dataforge-error-io -- when reading fails
func (d *Dataset) Checksum() (string, error) {
	var manifest strings.Builder
	for _, f := range d.allFiles() {
		data, err := os.ReadFile(filepath.Join(d.Path, f))
		if err != nil {
			return "", dfapi.ErrorIo("failed to read file for checksum", f, err)
		}
		c, err := fileCid(data)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&manifest, "%s %s\n", f, c)
	}
	return fileCid([]byte(manifest.String()))
}

// allFiles lists every file in the dataset except the index file, sorted.
func (d *Dataset) allFiles() []string {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		return nil
	}
	var result []string
	for _, e := range entries {
		if e.IsDir() || e.Name() == dab.MagicFilename_DatasetIndex {
			continue
		}
		result = append(result, e.Name())
	}
	sort.Strings(result)
	return result
}

func fileCid(data []byte) (string, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_512, -1)
	if err != nil {
		return "", dfapi.ErrorInternal("failed to hash file contents", err)
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}

// UpdateChecksum recomputes the dataset checksum and stores it in the
// dataset's metadata, rewriting the index file.
//
// Errors:
//
//    - dataforge-error-io -- when filesystem operations fail
//    - dataforge-error-serialization -- when encoding fails
func (d *Dataset) UpdateChecksum() error {
	sum, err := d.Checksum()
	if err != nil {
		return err
	}
	d.Meta.SourceChecksum = &sum
	return d.Save()
}

// IndexRows produces one catalog index row per table in the dataset.
// A table stored in several formats still gets a single row, recording
// the format Table would load (feather over csv). The channel,
// namespace, version, and dataset name are taken from the dataset's
// position in the catalog tree, given as the path of the dataset
// directory relative to the catalog root.
//
// Errors:
//
//    - dataforge-error-io -- when reading a sidecar fails
//    - dataforge-error-serialization -- when a sidecar does not parse
func (d *Dataset) IndexRows(relPath string) ([]dfapi.TableRef, error) {
	relPath = strings.Trim(filepath.ToSlash(relPath), "/")
	parts := strings.Split(relPath, "/")
	if len(parts) != 4 {
		return nil, dfapi.ErrorCatalogInvalid(relPath,
			"dataset directories live at channel/namespace/version/dataset")
	}
	channel, namespace, version, dsName := parts[0], parts[1], parts[2], parts[3]

	checksum := ""
	if d.Meta.SourceChecksum != nil {
		checksum = *d.Meta.SourceChecksum
	}
	fsys := os.DirFS(d.Path)
	var rows []dfapi.TableRef
	for _, name := range d.TableNames() {
		dataFile := name + ".csv"
		format := dfapi.FormatCSV
		if _, err := os.Stat(filepath.Join(d.Path, name+".feather")); err == nil {
			dataFile = name + ".feather"
			format = dfapi.FormatFeather
		}
		meta, err := dab.TableMetaFromFile(fsys, dab.SidecarPath(dataFile))
		if err != nil {
			return nil, err
		}
		rows = append(rows, dfapi.TableRef{
			Table:      name,
			Dataset:    dsName,
			Version:    version,
			Namespace:  namespace,
			Channel:    dfapi.Channel(channel),
			IsPublic:   d.Meta.IsPublic,
			Dimensions: meta.PrimaryKey,
			Path:       relPath + "/" + name,
			Format:     format,
			Checksum:   checksum,
		})
	}
	return rows, nil
}
