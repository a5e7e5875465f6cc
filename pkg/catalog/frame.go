package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/facette/natsort"

	"github.com/dataforge/dataforge/dfapi"
	"github.com/dataforge/dataforge/pkg/table"
)

// Frame is an in-memory catalog index: one row per table, searchable by
// name and coordinates.
type Frame struct {
	Rows     []dfapi.TableRef
	channels []dfapi.Channel
}

// FindFilter narrows a catalog search. The zero value matches every row
// in the default channels.
type FindFilter struct {
	// Table is matched as a substring of the table name.
	// Empty matches every table.
	Table string
	// Namespace, Version, and Dataset are matched exactly when set.
	Namespace string
	Version   string
	Dataset   string
	// Channels restricts the search; defaults to dfapi.DefaultChannels.
	// Every requested channel must have been loaded into the frame.
	Channels []dfapi.Channel
}

// NewFrame builds a frame over rows loaded from the given channels.
func NewFrame(rows []dfapi.TableRef, channels []dfapi.Channel) Frame {
	return Frame{Rows: rows, channels: channels}
}

// Channels reports which channels the frame has rows for.
func (f *Frame) Channels() []dfapi.Channel {
	return f.channels
}

// HasChannels reports whether every given channel is loaded in the frame.
func (f *Frame) HasChannels(channels []dfapi.Channel) bool {
	for _, want := range channels {
		found := false
		for _, have := range f.channels {
			if want == have {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Find returns every index row matching the filter.
//
// Errors:
//
//    - dataforge-error-searching-filesystem -- when the filter names a
//      channel the frame has not loaded
func (f *Frame) Find(filter FindFilter) ([]dfapi.TableRef, error) {
	channels := filter.Channels
	if len(channels) == 0 {
		channels = dfapi.DefaultChannels
	}
	if !f.HasChannels(channels) {
		return nil, dfapi.ErrorSearchingFilesystem("catalog index",
			fmt.Errorf("channels %v are not all loaded; loaded channels are %v", channels, f.channels))
	}
	var result []dfapi.TableRef
	for _, row := range f.Rows {
		if filter.Table != "" && !strings.Contains(row.Table, filter.Table) {
			continue
		}
		if filter.Namespace != "" && row.Namespace != filter.Namespace {
			continue
		}
		if filter.Version != "" && row.Version != filter.Version {
			continue
		}
		if filter.Dataset != "" && row.Dataset != filter.Dataset {
			continue
		}
		inChannel := false
		for _, ch := range channels {
			if row.Channel == ch {
				inChannel = true
				break
			}
		}
		if !inChannel {
			continue
		}
		result = append(result, row)
	}
	return result, nil
}

// FindOne returns the single index row matching the filter.
//
// Errors:
//
//    - dataforge-error-searching-filesystem -- when the filter names a
//      channel the frame has not loaded
//    - dataforge-error-missing -- when no row matches
//    - dataforge-error-invalid -- when more than one row matches
func (f *Frame) FindOne(filter FindFilter) (dfapi.TableRef, error) {
	matches, err := f.Find(filter)
	if err != nil {
		return dfapi.TableRef{}, err
	}
	switch len(matches) {
	case 0:
		return dfapi.TableRef{}, dfapi.ErrorTableMissing(filter.Table, "no tables match")
	case 1:
		return matches[0], nil
	}
	var paths []string
	for _, m := range matches {
		paths = append(paths, m.Path)
	}
	return dfapi.TableRef{}, dfapi.ErrorInvalid(
		fmt.Sprintf("expected exactly one table, got %d", len(matches)),
		[2]string{"matches", strings.Join(paths, ", ")})
}

// FindLatest returns the last matching index row once the matches are
// ordered by version. Versions order naturally, so "2021-03-01" beats
// "2020-12-31" and "10" beats "9".
//
// Errors:
//
//    - dataforge-error-searching-filesystem -- when the filter names a
//      channel the frame has not loaded
//    - dataforge-error-missing -- when no row matches
func (f *Frame) FindLatest(filter FindFilter) (dfapi.TableRef, error) {
	matches, err := f.Find(filter)
	if err != nil {
		return dfapi.TableRef{}, err
	}
	if len(matches) == 0 {
		return dfapi.TableRef{}, dfapi.ErrorTableMissing(filter.Table, "no tables match")
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return natsort.Compare(matches[i].Version, matches[j].Version)
	})
	return matches[len(matches)-1], nil
}

// indexColumn names for the serialized catalog index.
// The column order is part of the catalog format.
var indexColumns = []string{
	"table", "dataset", "version", "namespace", "channel",
	"is_public", "dimensions", "path", "format", "checksum",
}

// rowsToTable converts index rows to a table for feather serialization.
//
// Errors:
//
//    - dataforge-error-serialization -- when a dimensions list fails to encode
func rowsToTable(rows []dfapi.TableRef) (*table.Table, error) {
	n := len(rows)
	cols := map[string][]string{}
	for _, name := range indexColumns {
		cols[name] = make([]string, 0, n)
	}
	isPublic := make([]bool, 0, n)
	for _, row := range rows {
		dims, err := dfapi.MarshalStringList(row.Dimensions)
		if err != nil {
			return nil, err
		}
		cols["table"] = append(cols["table"], row.Table)
		cols["dataset"] = append(cols["dataset"], row.Dataset)
		cols["version"] = append(cols["version"], row.Version)
		cols["namespace"] = append(cols["namespace"], row.Namespace)
		cols["channel"] = append(cols["channel"], string(row.Channel))
		isPublic = append(isPublic, row.IsPublic)
		cols["dimensions"] = append(cols["dimensions"], dims)
		cols["path"] = append(cols["path"], row.Path)
		cols["format"] = append(cols["format"], string(row.Format))
		cols["checksum"] = append(cols["checksum"], row.Checksum)
	}
	t := &table.Table{}
	for _, name := range indexColumns {
		var s *table.Series
		if name == "is_public" {
			s = table.NewBoolSeries(name, isPublic, nil)
		} else {
			s = table.NewStringSeries(name, cols[name], nil)
		}
		if err := t.AddColumn(s); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// tableToRows converts a deserialized index table back to index rows.
//
// Errors:
//
//    - dataforge-error-catalog-parse -- when the table is missing a column
//      or a cell fails to decode
func tableToRows(t *table.Table) ([]dfapi.TableRef, error) {
	get := func(name string) (*table.Series, error) {
		s, err := t.Column(name)
		if err != nil {
			return nil, dfapi.ErrorCatalogParse("catalog index", err)
		}
		return s, nil
	}
	strCols := map[string]*table.Series{}
	for _, name := range indexColumns {
		if name == "is_public" {
			continue
		}
		s, err := get(name)
		if err != nil {
			return nil, err
		}
		strCols[name] = s
	}
	isPublic, err := get("is_public")
	if err != nil {
		return nil, err
	}

	rows := make([]dfapi.TableRef, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		dims, err := dfapi.UnmarshalStringList(strCols["dimensions"].StringAt(i))
		if err != nil {
			return nil, dfapi.ErrorCatalogParse("catalog index", err)
		}
		rows = append(rows, dfapi.TableRef{
			Table:      strCols["table"].StringAt(i),
			Dataset:    strCols["dataset"].StringAt(i),
			Version:    strCols["version"].StringAt(i),
			Namespace:  strCols["namespace"].StringAt(i),
			Channel:    dfapi.Channel(strCols["channel"].StringAt(i)),
			IsPublic:   isPublic.BoolAt(i),
			Dimensions: dims,
			Path:       strCols["path"].StringAt(i),
			Format:     dfapi.TableFormat(strCols["format"].StringAt(i)),
			Checksum:   strCols["checksum"].StringAt(i),
		})
	}
	return rows, nil
}
