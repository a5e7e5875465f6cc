package catalog

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dataforge/dataforge/dfapi"
	"github.com/dataforge/dataforge/pkg/dab"
	"github.com/dataforge/dataforge/pkg/logging"
	"github.com/dataforge/dataforge/pkg/names"
	"github.com/dataforge/dataforge/pkg/table"
	"github.com/dataforge/dataforge/pkg/tracing"
)

const LogTag_Catalog = "│  catalog"

// LocalCatalog is a catalog rooted at a directory on disk.
//
// The directory holds a catalog.meta.json file, one index file per
// channel, and the channel trees themselves: each dataset directory
// lives at <channel>/<namespace>/<version>/<dataset>.
type LocalCatalog struct {
	// Path is the catalog root directory.
	Path string
	// Frame holds the loaded index rows for the requested channels.
	Frame Frame
}

// InitLocalCatalog creates an empty catalog at the given path: the
// directory, its format metadata, and empty indexes for the requested
// channels.
//
// Errors:
//
//    - dataforge-error-already-exists -- when the path already holds a catalog
//    - dataforge-error-io -- when filesystem operations fail
//    - dataforge-error-serialization -- when encoding fails
func InitLocalCatalog(path string, channels ...dfapi.Channel) (*LocalCatalog, error) {
	if len(channels) == 0 {
		channels = dfapi.DefaultChannels
	}
	metaPath := filepath.Join(path, dab.MagicFilename_CatalogMetadata)
	if _, err := os.Stat(metaPath); err == nil {
		return nil, dfapi.ErrorFileAlreadyExists(metaPath)
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, dfapi.ErrorIo("failed to create catalog directory", path, err)
	}
	c := &LocalCatalog{
		Path:  path,
		Frame: NewFrame(nil, channels),
	}
	if err := c.saveIndex(); err != nil {
		return nil, err
	}
	return c, nil
}

// OpenLocalCatalog opens a catalog directory and loads the index for the
// requested channels. Channels without an index yet load as empty;
// Reindex builds them.
//
// Errors:
//
//    - dataforge-error-catalog-invalid -- when the path holds no catalog
//    - dataforge-error-catalog-version -- when the catalog format is newer
//      than this build supports
//    - dataforge-error-catalog-parse -- when the metadata or an index
//      does not parse
//    - dataforge-error-io -- when reading fails
func OpenLocalCatalog(path string, channels ...dfapi.Channel) (*LocalCatalog, error) {
	if len(channels) == 0 {
		channels = dfapi.DefaultChannels
	}
	fsys := os.DirFS(path)
	meta, err := dab.CatalogMetadataFromFile(fsys, dab.MagicFilename_CatalogMetadata)
	if err != nil {
		if _, statErr := os.Stat(filepath.Join(path, dab.MagicFilename_CatalogMetadata)); statErr != nil {
			return nil, dfapi.ErrorCatalogInvalid(path, "directory holds no catalog metadata file")
		}
		return nil, err
	}
	if meta.FormatVersion > dfapi.CatalogFormatVersion {
		return nil, dfapi.ErrorCatalogVersion(dfapi.CatalogFormatVersion, meta.FormatVersion)
	}

	var rows []dfapi.TableRef
	for _, channel := range channels {
		indexFile := dab.IndexFilename(channel)
		if _, err := os.Stat(filepath.Join(path, indexFile)); err != nil {
			continue
		}
		channelRows, err := readIndexFile(fsys, indexFile)
		if err != nil {
			return nil, err
		}
		rows = append(rows, channelRows...)
	}
	return &LocalCatalog{
		Path:  path,
		Frame: NewFrame(rows, channels),
	}, nil
}

// readIndexFile loads one channel's index rows from its feather file.
//
// Errors:
//
//    - dataforge-error-io -- when reading fails
//    - dataforge-error-serialization -- when the feather data does not parse
//    - dataforge-error-catalog-parse -- when the index shape is wrong
func readIndexFile(fsys fs.FS, indexFile string) ([]dfapi.TableRef, error) {
	data, err := fs.ReadFile(fsys, indexFile)
	if err != nil {
		return nil, dfapi.ErrorIo("failed to read catalog index", indexFile, err)
	}
	t, err := table.DecodeFeather(data)
	if err != nil {
		return nil, err
	}
	return tableToRows(t)
}

// LoadTable reads the table an index row points at.
//
// Errors:
//
//    - dataforge-error-io -- when reading fails
//    - dataforge-error-serialization -- when parsing fails
func (c *LocalCatalog) LoadTable(ctx context.Context, ref dfapi.TableRef) (*table.Table, error) {
	_, span := tracing.Start(ctx, "load table",
		trace.WithAttributes(attribute.String(tracing.AttrKeyTableName, ref.Table)))
	defer span.End()

	relPath := ref.Path + "." + string(ref.Format)
	fsys := os.DirFS(c.Path)
	switch ref.Format {
	case dfapi.FormatCSV:
		return table.ReadCSVFile(fsys, relPath)
	default:
		return table.ReadFeatherFile(fsys, relPath)
	}
}

// Reindex rescans the catalog tree and rebuilds the index for the
// catalog's channels. When include is non-empty, it is a regular
// expression: only datasets whose relative path matches are rescanned,
// and rows for non-matching paths are kept from the existing index.
//
// Errors:
//
//    - dataforge-error-invalid -- when include is not a valid regular expression
//    - dataforge-error-searching-filesystem -- when walking the tree fails
//    - dataforge-error-io -- when reading or writing fails
//    - dataforge-error-serialization -- when encoding or parsing fails
//    - dataforge-error-catalog-invalid -- when a dataset sits at the wrong depth
func (c *LocalCatalog) Reindex(ctx context.Context, include string) error {
	ctx, span := tracing.Start(ctx, "reindex")
	defer span.End()
	log := logging.Ctx(ctx)

	var includeRe *regexp.Regexp
	if include != "" {
		var err error
		includeRe, err = regexp.Compile(include)
		if err != nil {
			return dfapi.ErrorInvalid("include filter is not a valid regular expression",
				[2]string{"include", include})
		}
	}

	var rows []dfapi.TableRef
	if includeRe != nil {
		// partial reindex keeps prior rows outside the filter
		for _, row := range c.Frame.Rows {
			if !includeRe.MatchString(row.Path) {
				rows = append(rows, row)
			}
		}
	}

	for _, channel := range c.Frame.Channels() {
		datasetDirs, err := findDatasetDirs(os.DirFS(c.Path), string(channel))
		if err != nil {
			return err
		}
		for _, relPath := range datasetDirs {
			if includeRe != nil && !includeRe.MatchString(relPath) {
				continue
			}
			log.Debug(LogTag_Catalog, "indexing dataset %s", relPath)
			ds, err := OpenDataset(filepath.Join(c.Path, relPath))
			if err != nil {
				return err
			}
			dsRows, err := ds.IndexRows(relPath)
			if err != nil {
				return err
			}
			rows = append(rows, dsRows...)
		}
	}
	sortRows(rows)
	c.Frame.Rows = rows
	log.Info(LogTag_Catalog, "indexed %d tables", len(rows))
	return c.saveIndex()
}

// sortRows orders index rows by their key columns so the serialized
// index is stable whatever order the walk produced, and whatever rows a
// partial reindex kept.
func sortRows(rows []dfapi.TableRef) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Table != b.Table {
			return a.Table < b.Table
		}
		if a.Dataset != b.Dataset {
			return a.Dataset < b.Dataset
		}
		if a.Version != b.Version {
			return a.Version < b.Version
		}
		if a.Namespace != b.Namespace {
			return a.Namespace < b.Namespace
		}
		return a.Channel < b.Channel
	})
}

// findDatasetDirs walks one channel's tree and returns the relative
// paths of dataset directories. Recursion stops at the first directory
// holding a dataset index file, so datasets never nest.
//
// Errors:
//
//    - dataforge-error-searching-filesystem -- when walking the tree fails
func findDatasetDirs(fsys fs.FS, channelDir string) ([]string, error) {
	if _, err := fs.Stat(fsys, channelDir); err != nil {
		// channel not populated yet
		return nil, nil
	}
	var result []string
	err := fs.WalkDir(fsys, channelDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if _, err := fs.Stat(fsys, path+"/"+dab.MagicFilename_DatasetIndex); err == nil {
			result = append(result, path)
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, dfapi.ErrorSearchingFilesystem("dataset directories", err)
	}
	return result, nil
}

// Datasets opens every dataset in the catalog's channels.
//
// Errors:
//
//    - dataforge-error-searching-filesystem -- when walking the tree fails
//    - dataforge-error-io -- when reading fails
//    - dataforge-error-serialization -- when a dataset index does not parse
func (c *LocalCatalog) Datasets() ([]*Dataset, error) {
	var result []*Dataset
	for _, channel := range c.Frame.Channels() {
		datasetDirs, err := findDatasetDirs(os.DirFS(c.Path), string(channel))
		if err != nil {
			return nil, err
		}
		for _, relPath := range datasetDirs {
			ds, err := OpenDataset(filepath.Join(c.Path, relPath))
			if err != nil {
				return nil, err
			}
			result = append(result, ds)
		}
	}
	return result, nil
}

// saveIndex writes the catalog metadata file and one index feather per
// channel.
//
// Errors:
//
//    - dataforge-error-io -- when writing fails
//    - dataforge-error-serialization -- when encoding fails
func (c *LocalCatalog) saveIndex() error {
	metaSerial, err := dab.MarshalCatalogMetadata(&dfapi.CatalogMetadata{
		FormatVersion: dfapi.CatalogFormatVersion,
	})
	if err != nil {
		return err
	}
	metaPath := filepath.Join(c.Path, dab.MagicFilename_CatalogMetadata)
	if err := os.WriteFile(metaPath, metaSerial, 0644); err != nil {
		return dfapi.ErrorIo("failed to write catalog metadata", metaPath, err)
	}

	for _, channel := range c.Frame.Channels() {
		var channelRows []dfapi.TableRef
		for _, row := range c.Frame.Rows {
			if row.Channel == channel {
				channelRows = append(channelRows, row)
			}
		}
		t, err := rowsToTable(channelRows)
		if err != nil {
			return err
		}
		data, err := table.EncodeFeather(t)
		if err != nil {
			return err
		}
		indexPath := filepath.Join(c.Path, dab.IndexFilename(channel))
		if err := os.WriteFile(indexPath, data, 0644); err != nil {
			return dfapi.ErrorIo("failed to write catalog index", indexPath, err)
		}
	}
	return nil
}

// CreateDataset makes a new empty dataset inside the catalog tree at
// the given coordinates.
//
// Errors:
//
//    - dataforge-error-name -- when the dataset short name is not in
//      snake_case form
//    - dataforge-error-dataset-invalid -- when the target exists and is
//      not a dataset
//    - dataforge-error-io -- when filesystem operations fail
//    - dataforge-error-serialization -- when encoding fails
func (c *LocalCatalog) CreateDataset(channel dfapi.Channel, namespace, version, shortName string) (*Dataset, error) {
	if err := names.ValidateUnderscore(shortName, "dataset short name"); err != nil {
		return nil, err
	}
	ds, err := CreateDataset(filepath.Join(c.Path, string(channel), namespace, version, shortName))
	if err != nil {
		return nil, err
	}
	ds.Meta.Namespace = &namespace
	ds.Meta.ShortName = &shortName
	ds.Meta.Version = &version
	if err := ds.Save(); err != nil {
		return nil, err
	}
	return ds, nil
}

// relPath returns a dataset's path relative to the catalog root.
func (c *LocalCatalog) relPath(ds *Dataset) string {
	rel, err := filepath.Rel(c.Path, ds.Path)
	if err != nil {
		return ds.Path
	}
	return strings.Trim(filepath.ToSlash(rel), "/")
}
