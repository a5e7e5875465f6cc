package dfapi

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/serum-errors/go-serum"
)

func TestDatasetMetaSerializationPrunesAbsentFields(t *testing.T) {
	meta := NewDatasetMeta()
	serial, err := MarshalDatasetMeta(&meta)
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, serial, qt.JSONEquals, map[string]interface{}{
		"sources":   []interface{}{},
		"licenses":  []interface{}{},
		"is_public": true,
	})
}

func TestDatasetMetaRoundtrip(t *testing.T) {
	meta := NewDatasetMeta()
	meta.Namespace = String("un")
	meta.ShortName = String("demography")
	meta.Title = String("UN demography")
	meta.Version = String("2022-07-11")
	meta.IsPublic = false
	meta.Sources = []Source{{
		Name:            String("United Nations"),
		Url:             String("https://population.un.org/"),
		PublicationYear: Int(2022),
	}}
	meta.Licenses = []License{{Name: String("CC BY 4.0")}}

	serial, err := MarshalDatasetMeta(&meta)
	qt.Assert(t, err, qt.IsNil)
	back, err := UnmarshalDatasetMeta(serial)
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, back, qt.DeepEquals, &meta)
}

func TestDatasetMetaParseRejectsGarbage(t *testing.T) {
	_, err := UnmarshalDatasetMeta([]byte(`{"is_public": "yes"}`))
	qt.Check(t, serum.Code(err), qt.Equals, ECodeSerialization)
}

func TestEffectiveVersion(t *testing.T) {
	// an explicit version always wins
	meta := NewDatasetMeta()
	meta.Version = String("2022-07-11")
	meta.Sources = []Source{{PublicationDate: String("2001-01-01")}}
	qt.Check(t, meta.EffectiveVersion(), qt.Equals, "2022-07-11")

	// a single source's publication date can stand in for a version
	meta = NewDatasetMeta()
	meta.Sources = []Source{{PublicationDate: String("2001-01-01")}}
	qt.Check(t, meta.EffectiveVersion(), qt.Equals, "2001-01-01")

	// or its publication year, failing that
	meta = NewDatasetMeta()
	meta.Sources = []Source{{PublicationYear: Int(2001)}}
	qt.Check(t, meta.EffectiveVersion(), qt.Equals, "2001")

	// several sources are ambiguous, so no version is derived
	meta = NewDatasetMeta()
	meta.Sources = []Source{
		{PublicationDate: String("2001-01-01")},
		{PublicationDate: String("2002-02-02")},
	}
	qt.Check(t, meta.EffectiveVersion(), qt.Equals, "")

	meta = NewDatasetMeta()
	qt.Check(t, meta.EffectiveVersion(), qt.Equals, "")
}

func TestTableMetaSerialization(t *testing.T) {
	meta := TableMeta{}
	serial, err := MarshalTableMeta(&meta)
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, serial, qt.JSONEquals, map[string]interface{}{
		"primary_key": []interface{}{},
		"fields":      map[string]interface{}{},
	})

	meta.ShortName = String("population")
	meta.PrimaryKey = []string{"country", "year"}
	meta.SetField("population", VariableMeta{
		Title: String("Population"),
		Unit:  String("people"),
	})
	serial, err = MarshalTableMeta(&meta)
	qt.Assert(t, err, qt.IsNil)

	back, err := UnmarshalTableMeta(serial)
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, *back.ShortName, qt.Equals, "population")
	qt.Check(t, back.PrimaryKey, qt.DeepEquals, []string{"country", "year"})
	qt.Check(t, *back.Field("population").Unit, qt.Equals, "people")
	// columns without metadata report an empty envelope
	qt.Check(t, back.Field("no_such_column").Unit, qt.IsNil)
}

func TestCheckedName(t *testing.T) {
	meta := TableMeta{}
	_, err := meta.CheckedName()
	qt.Check(t, serum.Code(err), qt.Equals, ECodeInvalid)

	meta.ShortName = String("population")
	name, err := meta.CheckedName()
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, name, qt.Equals, "population")
}

func TestMetaCid(t *testing.T) {
	meta := NewDatasetMeta()
	meta.ShortName = String("demography")

	// the same metadata always yields the same cid
	qt.Check(t, meta.Cid(), qt.Equals, meta.Cid())

	other := NewDatasetMeta()
	other.ShortName = String("economy")
	qt.Check(t, meta.Cid(), qt.Not(qt.Equals), other.Cid())
}
