package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/dataforge/dataforge/dfapi"
	"github.com/dataforge/dataforge/pkg/dab"
)

// WriteCSV writes the table's data as CSV to a writer.
// Null values render as empty cells.
func WriteCSV(t *Table, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return dfapi.ErrorSerialization("failed to write csv header", err)
	}
	row := make([]string, len(t.columns))
	for i := 0; i < t.Len(); i++ {
		for j, s := range t.columns {
			row[j] = s.Render(i)
		}
		if err := cw.Write(row); err != nil {
			return dfapi.ErrorSerialization("failed to write csv row", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return dfapi.ErrorSerialization("failed to flush csv", err)
	}
	return nil
}

// WriteCSVFile writes the table's data to a CSV file and its metadata to
// a JSON sidecar next to it.
//
// Errors:
//
//    - dataforge-error-invalid -- when the path does not end in ".csv"
//    - dataforge-error-serialization -- when encoding fails
//    - dataforge-error-io -- when writing fails
func WriteCSVFile(t *Table, path string) error {
	if !strings.HasSuffix(path, ".csv") {
		return dfapi.ErrorInvalid(
			fmt.Sprintf("csv table files require a .csv extension, got %q", path),
			[2]string{"path", path})
	}
	f, err := os.Create(path)
	if err != nil {
		return dfapi.ErrorIo("failed to create csv file", path, err)
	}
	defer f.Close()
	if err := WriteCSV(t, f); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return dfapi.ErrorIo("failed to write csv file", path, err)
	}
	return writeSidecar(t, path)
}

// ReadCSVFile loads a table from a CSV file and its metadata sidecar.
// Column types are inferred from the data: integers, then floats, then
// booleans, falling back to strings.
//
// Errors:
//
//    - dataforge-error-io -- when reading fails
//    - dataforge-error-serialization -- when parsing fails
func ReadCSVFile(fsys fs.FS, path string) (*Table, error) {
	if strings.HasPrefix(path, "/") {
		path = path[1:]
	}
	f, err := fsys.Open(path)
	if err != nil {
		return nil, dfapi.ErrorIo("failed to open csv file", path, err)
	}
	defer f.Close()
	cr := csv.NewReader(f)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, dfapi.ErrorSerialization(fmt.Sprintf("failed to parse csv file %q", path), err)
	}
	if len(records) == 0 {
		return nil, dfapi.ErrorInvalid(
			fmt.Sprintf("csv file %q has no header", path),
			[2]string{"path", path})
	}
	t := &Table{}
	header := records[0]
	rows := records[1:]
	for j, name := range header {
		cells := make([]string, len(rows))
		for i, row := range rows {
			cells[i] = row[j]
		}
		t.columns = append(t.columns, inferSeries(name, cells))
	}
	if err := readSidecar(t, fsys, path); err != nil {
		return nil, err
	}
	return t, nil
}

// inferSeries builds a typed series from raw csv cells.
// Empty cells are nulls.
func inferSeries(name string, cells []string) *Series {
	valid := make([]bool, len(cells))
	hasNull := false
	for i, c := range cells {
		valid[i] = c != ""
		if c == "" {
			hasNull = true
		}
	}
	if !hasNull {
		valid = nil
	}

	isInt, isFloat, isBool := true, true, true
	any := false
	for i, c := range cells {
		if valid != nil && !valid[i] {
			continue
		}
		any = true
		if _, err := strconv.ParseInt(c, 10, 64); err != nil {
			isInt = false
		}
		if _, err := strconv.ParseFloat(c, 64); err != nil {
			isFloat = false
		}
		if c != "true" && c != "false" {
			isBool = false
		}
	}
	if !any {
		isInt, isFloat, isBool = false, false, false
	}

	switch {
	case isInt:
		ints := make([]int64, len(cells))
		for i, c := range cells {
			if valid != nil && !valid[i] {
				continue
			}
			ints[i], _ = strconv.ParseInt(c, 10, 64)
		}
		return NewIntSeries(name, ints, valid)
	case isFloat:
		floats := make([]float64, len(cells))
		for i, c := range cells {
			if valid != nil && !valid[i] {
				continue
			}
			floats[i], _ = strconv.ParseFloat(c, 64)
		}
		return NewFloatSeries(name, floats, valid)
	case isBool:
		bools := make([]bool, len(cells))
		for i, c := range cells {
			if valid != nil && !valid[i] {
				continue
			}
			bools[i] = c == "true"
		}
		return NewBoolSeries(name, bools, valid)
	}
	return NewStringSeries(name, cells, valid)
}

// writeSidecar stores the table's metadata next to its data file.
func writeSidecar(t *Table, dataPath string) error {
	sidecarPath := dab.SidecarPath(dataPath)
	serial, err := dfapi.MarshalTableMeta(&t.Meta)
	if err != nil {
		return err
	}
	if err := os.WriteFile(sidecarPath, serial, 0644); err != nil {
		return dfapi.ErrorIo("failed to write table metadata", sidecarPath, err)
	}
	return nil
}

// readSidecar restores the table's metadata from next to its data file.
func readSidecar(t *Table, fsys fs.FS, dataPath string) error {
	meta, err := dab.TableMetaFromFile(fsys, dab.SidecarPath(dataPath))
	if err != nil {
		return err
	}
	t.Meta = *meta
	return nil
}
