package table

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/serum-errors/go-serum"

	"github.com/dataforge/dataforge/dfapi"
)

func exampleTable(t *testing.T) *Table {
	tbl, err := NewTable("mytable")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, tbl.AddColumn(NewIntSeries("year", []int64{2019, 2020, 2021}, nil)), qt.IsNil)
	qt.Assert(t, tbl.AddColumn(NewStringSeries("country", []string{"sweden", "sweden", "norway"}, nil)), qt.IsNil)
	qt.Assert(t, tbl.AddColumn(NewFloatSeries("gdp", []float64{1.5, 0, 2.25}, []bool{true, false, true})), qt.IsNil)
	qt.Assert(t, tbl.SetPrimaryKey([]string{"country", "year"}), qt.IsNil)
	tbl.Meta.SetField("gdp", dfapi.VariableMeta{
		Title: dfapi.String("GDP"),
		Unit:  dfapi.String("usd"),
	})
	return tbl
}

func TestNewTableRejectsBadNames(t *testing.T) {
	_, err := NewTable("My Table")
	qt.Check(t, serum.Code(err), qt.Equals, dfapi.ECodeName)
}

func TestAddColumn(t *testing.T) {
	tbl, err := NewTable("mytable")
	qt.Assert(t, err, qt.IsNil)

	qt.Assert(t, tbl.AddColumn(NewIntSeries("year", []int64{2019, 2020}, nil)), qt.IsNil)
	qt.Check(t, tbl.Len(), qt.Equals, 2)

	// length mismatch
	err = tbl.AddColumn(NewIntSeries("pop", []int64{1}, nil))
	qt.Check(t, serum.Code(err), qt.Equals, dfapi.ECodeInvalid)

	// duplicate name
	err = tbl.AddColumn(NewIntSeries("year", []int64{1, 2}, nil))
	qt.Check(t, serum.Code(err), qt.Equals, dfapi.ECodeInvalid)

	// names must be snake_case
	err = tbl.AddColumn(NewIntSeries("Bad Name", []int64{1, 2}, nil))
	qt.Check(t, serum.Code(err), qt.Equals, dfapi.ECodeName)

	// every column gets a metadata envelope, even an empty one
	qt.Check(t, tbl.Meta.Fields.Keys, qt.DeepEquals, []string{"year"})
}

func TestSetPrimaryKeyRequiresColumns(t *testing.T) {
	tbl := exampleTable(t)
	err := tbl.SetPrimaryKey([]string{"no_such_column"})
	qt.Check(t, serum.Code(err), qt.Equals, dfapi.ECodeInvalid)
	// the failed call must not clobber the existing key
	qt.Check(t, tbl.PrimaryKey(), qt.DeepEquals, []string{"country", "year"})
}

func TestCSVRoundtrip(t *testing.T) {
	tbl := exampleTable(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "mytable.csv")
	qt.Assert(t, WriteCSVFile(tbl, path), qt.IsNil)

	loaded, err := ReadCSVFile(os.DirFS(dir), "mytable.csv")
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, loaded.Equal(tbl), qt.Equals, true)
	qt.Check(t, loaded.Name(), qt.Equals, "mytable")
	qt.Check(t, loaded.PrimaryKey(), qt.DeepEquals, []string{"country", "year"})
	qt.Check(t, *loaded.Meta.Field("gdp").Unit, qt.Equals, "usd")

	// the null in gdp survives
	gdp, err := loaded.Column("gdp")
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, gdp.IsNull(1), qt.Equals, true)
	qt.Check(t, gdp.FloatAt(2), qt.Equals, 2.25)
}

func TestCSVRequiresExtension(t *testing.T) {
	tbl := exampleTable(t)
	err := WriteCSVFile(tbl, filepath.Join(t.TempDir(), "mytable.feather"))
	qt.Check(t, serum.Code(err), qt.Equals, dfapi.ECodeInvalid)
}

func TestCSVTypeInference(t *testing.T) {
	qt.Check(t, inferSeries("a", []string{"1", "2"}).Kind, qt.Equals, KindInt64)
	qt.Check(t, inferSeries("a", []string{"1", "2.5"}).Kind, qt.Equals, KindFloat64)
	qt.Check(t, inferSeries("a", []string{"true", "false"}).Kind, qt.Equals, KindBool)
	qt.Check(t, inferSeries("a", []string{"true", "maybe"}).Kind, qt.Equals, KindString)
	// all-null columns fall back to strings
	qt.Check(t, inferSeries("a", []string{"", ""}).Kind, qt.Equals, KindString)
	// nulls do not disturb inference
	s := inferSeries("a", []string{"7", ""})
	qt.Check(t, s.Kind, qt.Equals, KindInt64)
	qt.Check(t, s.IsNull(1), qt.Equals, true)
}

func TestFeatherRoundtrip(t *testing.T) {
	tbl := exampleTable(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "mytable.feather")
	qt.Assert(t, WriteFeatherFile(tbl, path), qt.IsNil)

	loaded, err := ReadFeatherFile(os.DirFS(dir), "mytable.feather")
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, loaded.Equal(tbl), qt.Equals, true)
	qt.Check(t, loaded.PrimaryKey(), qt.DeepEquals, []string{"country", "year"})

	gdp, err := loaded.Column("gdp")
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, gdp.Kind, qt.Equals, KindFloat64)
	qt.Check(t, gdp.IsNull(1), qt.Equals, true)
}

func TestFeatherRequiresExtension(t *testing.T) {
	tbl := exampleTable(t)
	err := WriteFeatherFile(tbl, filepath.Join(t.TempDir(), "mytable.csv"))
	qt.Check(t, serum.Code(err), qt.Equals, dfapi.ECodeInvalid)
}

func TestSeekBuffer(t *testing.T) {
	b := &seekBuffer{}
	_, err := b.Write([]byte("hello world"))
	qt.Assert(t, err, qt.IsNil)

	// seeking back and rewriting must not truncate what follows
	pos, err := b.Seek(6, io.SeekStart)
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, pos, qt.Equals, int64(6))
	_, err = b.Write([]byte("again"))
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, string(b.data), qt.Equals, "hello again")

	pos, err = b.Seek(0, io.SeekEnd)
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, pos, qt.Equals, int64(11))

	_, err = b.Seek(-1, io.SeekStart)
	qt.Check(t, err, qt.IsNotNil)
}

func TestFeatherEncodeDecode(t *testing.T) {
	tbl := exampleTable(t)
	data, err := EncodeFeather(tbl)
	qt.Assert(t, err, qt.IsNil)
	decoded, err := DecodeFeather(data)
	qt.Assert(t, err, qt.IsNil)
	// DecodeFeather carries data only; metadata lives in the sidecar
	qt.Check(t, decoded.Columns(), qt.DeepEquals, []string{"year", "country", "gdp"})
	qt.Check(t, decoded.Len(), qt.Equals, 3)
	qt.Check(t, decoded.Name(), qt.Equals, "")
}

func TestEqual(t *testing.T) {
	a := exampleTable(t)
	b := exampleTable(t)
	qt.Check(t, a.Equal(b), qt.Equals, true)

	qt.Assert(t, b.AddColumn(NewBoolSeries("flag", []bool{true, false, true}, nil)), qt.IsNil)
	qt.Check(t, a.Equal(b), qt.Equals, false)
}
