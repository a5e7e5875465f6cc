package table

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/ipc"
	"github.com/apache/arrow/go/v12/arrow/memory"

	"github.com/dataforge/dataforge/dfapi"
)

// arrowSchema builds the arrow schema matching the table's columns.
func arrowSchema(t *Table) *arrow.Schema {
	fields := make([]arrow.Field, len(t.columns))
	for i, s := range t.columns {
		var dt arrow.DataType
		switch s.Kind {
		case KindString:
			dt = arrow.BinaryTypes.String
		case KindInt64:
			dt = arrow.PrimitiveTypes.Int64
		case KindFloat64:
			dt = arrow.PrimitiveTypes.Float64
		case KindBool:
			dt = arrow.FixedWidthTypes.Boolean
		}
		fields[i] = arrow.Field{Name: s.Name, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// WriteFeatherFile writes the table's data to an arrow IPC file and its
// metadata to a JSON sidecar next to it.
//
// Errors:
//
//    - dataforge-error-invalid -- when the path does not end in ".feather"
//    - dataforge-error-serialization -- when encoding fails
//    - dataforge-error-io -- when writing fails
func WriteFeatherFile(t *Table, path string) error {
	if !strings.HasSuffix(path, ".feather") {
		return dfapi.ErrorInvalid(
			fmt.Sprintf("feather table files require a .feather extension, got %q", path),
			[2]string{"path", path})
	}
	data, err := EncodeFeather(t)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return dfapi.ErrorIo("failed to write feather file", path, err)
	}
	return writeSidecar(t, path)
}

// ReadFeatherFile loads a table from an arrow IPC file and its metadata
// sidecar.
//
// Errors:
//
//    - dataforge-error-io -- when reading fails
//    - dataforge-error-serialization -- when parsing fails, or a column
//      has a type tables do not support
func ReadFeatherFile(fsys fs.FS, path string) (*Table, error) {
	if strings.HasPrefix(path, "/") {
		path = path[1:]
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, dfapi.ErrorIo("failed to read feather file", path, err)
	}
	t, err := DecodeFeather(data)
	if err != nil {
		return nil, err
	}
	if err := readSidecar(t, fsys, path); err != nil {
		return nil, err
	}
	return t, nil
}

// DecodeFeather parses arrow IPC file bytes into a table with no metadata.
//
// Errors:
//
//    - dataforge-error-serialization -- when parsing fails, or a column
//      has a type tables do not support
func DecodeFeather(data []byte) (*Table, error) {
	rdr, err := ipc.NewFileReader(bytes.NewReader(data))
	if err != nil {
		return nil, dfapi.ErrorSerialization("failed to open feather reader", err)
	}
	defer rdr.Close()

	schema := rdr.Schema()
	nCols := len(schema.Fields())
	allStrings := make([][]string, nCols)
	allInts := make([][]int64, nCols)
	allFloats := make([][]float64, nCols)
	allBools := make([][]bool, nCols)
	allValid := make([][]bool, nCols)
	anyNull := make([]bool, nCols)

	for i := 0; i < rdr.NumRecords(); i++ {
		rec, err := rdr.Record(i)
		if err != nil {
			return nil, dfapi.ErrorSerialization("failed to read feather record", err)
		}
		for j := 0; j < nCols; j++ {
			col := rec.Column(j)
			for k := 0; k < col.Len(); k++ {
				null := col.IsNull(k)
				allValid[j] = append(allValid[j], !null)
				if null {
					anyNull[j] = true
				}
				switch c := col.(type) {
				case *array.String:
					v := ""
					if !null {
						v = c.Value(k)
					}
					allStrings[j] = append(allStrings[j], v)
				case *array.Int64:
					var v int64
					if !null {
						v = c.Value(k)
					}
					allInts[j] = append(allInts[j], v)
				case *array.Float64:
					var v float64
					if !null {
						v = c.Value(k)
					}
					allFloats[j] = append(allFloats[j], v)
				case *array.Boolean:
					var v bool
					if !null {
						v = c.Value(k)
					}
					allBools[j] = append(allBools[j], v)
				default:
					return nil, dfapi.ErrorSerialization(
						fmt.Sprintf("unsupported column type %s for column %q",
							col.DataType(), schema.Field(j).Name),
						fmt.Errorf("type %s not supported", col.DataType()))
				}
			}
		}
	}

	t := &Table{}
	for j, field := range schema.Fields() {
		valid := allValid[j]
		if !anyNull[j] {
			valid = nil
		}
		var s *Series
		switch field.Type.ID() {
		case arrow.STRING:
			if allStrings[j] == nil {
				allStrings[j] = []string{}
			}
			s = NewStringSeries(field.Name, allStrings[j], valid)
		case arrow.INT64:
			if allInts[j] == nil {
				allInts[j] = []int64{}
			}
			s = NewIntSeries(field.Name, allInts[j], valid)
		case arrow.FLOAT64:
			if allFloats[j] == nil {
				allFloats[j] = []float64{}
			}
			s = NewFloatSeries(field.Name, allFloats[j], valid)
		case arrow.BOOL:
			if allBools[j] == nil {
				allBools[j] = []bool{}
			}
			s = NewBoolSeries(field.Name, allBools[j], valid)
		default:
			return nil, dfapi.ErrorSerialization(
				fmt.Sprintf("unsupported column type %s for column %q", field.Type, field.Name),
				fmt.Errorf("type %s not supported", field.Type))
		}
		t.columns = append(t.columns, s)
	}
	return t, nil
}

// seekBuffer is an in-memory io.WriteSeeker. The arrow file writer
// seeks back over what it wrote to fill in block offsets, so a plain
// bytes.Buffer cannot receive it.
type seekBuffer struct {
	data []byte
	pos  int64
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if need := int(b.pos) + len(p); need > len(b.data) {
		grown := make([]byte, need)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:], p)
	b.pos += int64(len(p))
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = b.pos + offset
	case io.SeekEnd:
		next = int64(len(b.data)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("seek to negative offset %d", next)
	}
	b.pos = next
	return next, nil
}

// EncodeFeather serializes the table's data as arrow IPC file bytes.
//
// Errors:
//
//    - dataforge-error-serialization -- when encoding fails
func EncodeFeather(t *Table) ([]byte, error) {
	buf := &seekBuffer{}
	schema := arrowSchema(t)
	bldr := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer bldr.Release()
	for j, s := range t.columns {
		for i := 0; i < s.Len(); i++ {
			if s.IsNull(i) {
				bldr.Field(j).AppendNull()
				continue
			}
			switch s.Kind {
			case KindString:
				bldr.Field(j).(*array.StringBuilder).Append(s.strings[i])
			case KindInt64:
				bldr.Field(j).(*array.Int64Builder).Append(s.ints[i])
			case KindFloat64:
				bldr.Field(j).(*array.Float64Builder).Append(s.floats[i])
			case KindBool:
				bldr.Field(j).(*array.BooleanBuilder).Append(s.bools[i])
			}
		}
	}
	rec := bldr.NewRecord()
	defer rec.Release()

	w, err := ipc.NewFileWriter(buf, ipc.WithSchema(schema))
	if err != nil {
		return nil, dfapi.ErrorSerialization("failed to open feather writer", err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return nil, dfapi.ErrorSerialization("failed to write feather record", err)
	}
	if err := w.Close(); err != nil {
		return nil, dfapi.ErrorSerialization("failed to finish feather file", err)
	}
	return buf.data, nil
}
