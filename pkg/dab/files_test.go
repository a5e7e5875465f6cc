package dab

import (
	"testing"
	"testing/fstest"

	qt "github.com/frankban/quicktest"
	"github.com/serum-errors/go-serum"

	"github.com/dataforge/dataforge/dfapi"
)

func TestSidecarPath(t *testing.T) {
	qt.Check(t, SidecarPath("garden/ns/2020/ds/mytable.feather"), qt.Equals, "garden/ns/2020/ds/mytable.meta.json")
	qt.Check(t, SidecarPath("mytable.csv"), qt.Equals, "mytable.meta.json")
	qt.Check(t, SidecarPath("noext"), qt.Equals, "noext.meta.json")
}

func TestGuessFormat(t *testing.T) {
	f, err := GuessFormat("a/b/table.feather")
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, f, qt.Equals, dfapi.FormatFeather)

	f, err = GuessFormat("table.csv")
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, f, qt.Equals, dfapi.FormatCSV)

	_, err = GuessFormat("table.parquet")
	qt.Check(t, serum.Code(err), qt.Equals, dfapi.ECodeInvalid)
}

func TestDatasetMetaFromFile(t *testing.T) {
	fsys := fstest.MapFS{
		"garden/ns/2020/ds/index.json": &fstest.MapFile{Data: []byte(
			`{"namespace":"ns","short_name":"ds","is_public":true,"version":"2020"}`,
		)},
	}
	meta, err := DatasetMetaFromFile(fsys, "/garden/ns/2020/ds/index.json")
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, *meta.ShortName, qt.Equals, "ds")
	qt.Check(t, *meta.Namespace, qt.Equals, "ns")
	qt.Check(t, meta.IsPublic, qt.Equals, true)

	_, err = DatasetMetaFromFile(fsys, "garden/ns/2020/other/index.json")
	qt.Check(t, serum.Code(err), qt.Equals, dfapi.ECodeIo)
}

func TestTableMetaFromFile(t *testing.T) {
	fsys := fstest.MapFS{
		"ds/mytable.meta.json": &fstest.MapFile{Data: []byte(
			`{"short_name":"mytable","primary_key":["year"],"fields":{"gdp":{"unit":"usd"}}}`,
		)},
	}
	meta, err := TableMetaFromFile(fsys, "ds/mytable.meta.json")
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, *meta.ShortName, qt.Equals, "mytable")
	qt.Check(t, meta.PrimaryKey, qt.DeepEquals, []string{"year"})
	qt.Check(t, *meta.Field("gdp").Unit, qt.Equals, "usd")
}

func TestCatalogMetadataRoundtrip(t *testing.T) {
	fsys := fstest.MapFS{
		"catalog.meta.json": &fstest.MapFile{Data: []byte(`{"format_version":2}`)},
	}
	meta, err := CatalogMetadataFromFile(fsys, "catalog.meta.json")
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, meta.FormatVersion, qt.Equals, int64(2))

	serial, err := MarshalCatalogMetadata(meta)
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, serial, qt.JSONEquals, map[string]interface{}{"format_version": 2})

	_, err = ParseCatalogMetadata("catalog.meta.json", []byte(`{"format_version":"nope"}`))
	qt.Check(t, serum.Code(err), qt.Equals, dfapi.ECodeCatalogParse)
}
