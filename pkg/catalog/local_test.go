package catalog

import (
	"context"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/serum-errors/go-serum"

	"github.com/dataforge/dataforge/dfapi"
)

// buildCatalog populates a catalog on disk with one dataset and one
// table, reindexed and ready to search.
func buildCatalog(t *testing.T) *LocalCatalog {
	root := t.TempDir()
	c, err := InitLocalCatalog(root, dfapi.ChannelGarden)
	qt.Assert(t, err, qt.IsNil)

	ds, err := c.CreateDataset(dfapi.ChannelGarden, "un", "2022-07-11", "demography")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, ds.WriteTable(exampleDatasetTable(t)), qt.IsNil)
	qt.Assert(t, ds.UpdateChecksum(), qt.IsNil)

	qt.Assert(t, c.Reindex(context.Background(), ""), qt.IsNil)
	return c
}

func TestInitLocalCatalog(t *testing.T) {
	root := t.TempDir()
	c, err := InitLocalCatalog(root)
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, c.Frame.Channels(), qt.DeepEquals, dfapi.DefaultChannels)

	// init refuses to clobber an existing catalog
	_, err = InitLocalCatalog(root)
	qt.Check(t, serum.Code(err), qt.Equals, dfapi.ECodeAlreadyExists)
}

func TestOpenLocalCatalog(t *testing.T) {
	c := buildCatalog(t)

	reopened, err := OpenLocalCatalog(c.Path, dfapi.ChannelGarden)
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, len(reopened.Frame.Rows), qt.Equals, 1)

	// a plain directory is not a catalog
	_, err = OpenLocalCatalog(t.TempDir())
	qt.Check(t, serum.Code(err), qt.Equals, dfapi.ECodeCatalogInvalid)
}

func TestReindexAndFind(t *testing.T) {
	c := buildCatalog(t)

	matches, err := c.Frame.Find(FindFilter{Table: "population"})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, len(matches), qt.Equals, 1)
	qt.Check(t, matches[0].Namespace, qt.Equals, "un")
	qt.Check(t, matches[0].Dataset, qt.Equals, "demography")
	qt.Check(t, matches[0].Dimensions, qt.DeepEquals, []string{"country", "year"})
}

func TestLoadTable(t *testing.T) {
	c := buildCatalog(t)

	ref, err := c.Frame.FindOne(FindFilter{Table: "population"})
	qt.Assert(t, err, qt.IsNil)
	tbl, err := c.LoadTable(context.Background(), ref)
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, tbl.Len(), qt.Equals, 2)
	qt.Check(t, tbl.PrimaryKey(), qt.DeepEquals, []string{"country", "year"})
}

func TestPartialReindex(t *testing.T) {
	c := buildCatalog(t)

	// add a second dataset, then reindex only its subtree
	ds, err := c.CreateDataset(dfapi.ChannelGarden, "worldbank", "2020", "economy")
	qt.Assert(t, err, qt.IsNil)
	tbl := exampleDatasetTable(t)
	tbl.Meta.ShortName = dfapi.String("gdp")
	qt.Assert(t, ds.WriteTable(tbl), qt.IsNil)

	qt.Assert(t, c.Reindex(context.Background(), "garden/worldbank/.*"), qt.IsNil)
	qt.Check(t, len(c.Frame.Rows), qt.Equals, 2)

	// the merged index comes out sorted by key columns, not in
	// kept-then-walked order
	qt.Check(t, c.Frame.Rows[0].Table, qt.Equals, "gdp")
	qt.Check(t, c.Frame.Rows[1].Table, qt.Equals, "population")

	// rows outside the filter were kept, not rescanned
	matches, err := c.Frame.Find(FindFilter{Table: "population"})
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, len(matches), qt.Equals, 1)

	// a bad pattern is rejected up front
	err = c.Reindex(context.Background(), "[")
	qt.Check(t, serum.Code(err), qt.Equals, dfapi.ECodeInvalid)
}

func TestDatasets(t *testing.T) {
	c := buildCatalog(t)
	dss, err := c.Datasets()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, len(dss), qt.Equals, 1)
	qt.Check(t, dss[0].Path, qt.Equals, filepath.Join(c.Path, "garden", "un", "2022-07-11", "demography"))
	qt.Check(t, c.relPath(dss[0]), qt.Equals, "garden/un/2022-07-11/demography")
}
