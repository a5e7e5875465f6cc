package dfapp

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/dataforge/dataforge/dfapi"
	"github.com/dataforge/dataforge/pkg/catalog"
	"github.com/dataforge/dataforge/pkg/table"
)

// runApp invokes the CLI with captured output.
func runApp(t *testing.T, args ...string) (stdout, stderr string, err error) {
	var outBuf, errBuf bytes.Buffer
	App.Writer = &outBuf
	App.ErrWriter = &errBuf
	t.Cleanup(func() {
		App.Writer = nil
		App.ErrWriter = nil
	})
	err = App.Run(append([]string{"dataforge"}, args...))
	return outBuf.String(), errBuf.String(), err
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range App.Commands {
		names[cmd.Name] = true
	}
	for _, want := range []string{"catalog", "dataset", "find"} {
		qt.Check(t, names[want], qt.Equals, true, qt.Commentf("command %q missing", want))
	}
}

func TestCatalogLifecycle(t *testing.T) {
	root := filepath.Join(t.TempDir(), "catalog")

	stdout, _, err := runApp(t, "catalog", "init", root)
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, strings.Contains(stdout, "initialized empty catalog"), qt.Equals, true)

	// drop a dataset in by hand, then reindex and search
	c, err := catalog.OpenLocalCatalog(root)
	qt.Assert(t, err, qt.IsNil)
	ds, err := c.CreateDataset(dfapi.ChannelGarden, "un", "2022", "demography")
	qt.Assert(t, err, qt.IsNil)
	tbl := exampleTable(t)
	qt.Assert(t, ds.WriteTable(tbl), qt.IsNil)

	_, _, err = runApp(t, "catalog", "reindex", root)
	qt.Assert(t, err, qt.IsNil)

	stdout, _, err = runApp(t, "catalog", "ls", root)
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, strings.Contains(stdout, "garden/un/2022/demography/population"), qt.Equals, true)

	stdout, _, err = runApp(t, "find", "--catalog", root, "popul")
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, strings.Contains(stdout, "garden/un/2022/demography/population"), qt.Equals, true)
}

func TestDatasetShow(t *testing.T) {
	root := filepath.Join(t.TempDir(), "catalog")
	_, _, err := runApp(t, "catalog", "init", root)
	qt.Assert(t, err, qt.IsNil)

	c, err := catalog.OpenLocalCatalog(root)
	qt.Assert(t, err, qt.IsNil)
	ds, err := c.CreateDataset(dfapi.ChannelGarden, "un", "2022", "demography")
	qt.Assert(t, err, qt.IsNil)
	ds.Meta.Title = dfapi.String("UN demography")
	qt.Assert(t, ds.Save(), qt.IsNil)
	qt.Assert(t, ds.WriteTable(exampleTable(t)), qt.IsNil)

	stdout, _, err := runApp(t, "dataset", "show", ds.Path)
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, strings.Contains(stdout, "UN demography"), qt.Equals, true)
	qt.Check(t, strings.Contains(stdout, "population"), qt.Equals, true)

	stdout, _, err = runApp(t, "dataset", "checksum", ds.Path)
	qt.Assert(t, err, qt.IsNil)
	// CIDv1 strings in base32 always start with "b"
	qt.Check(t, strings.HasPrefix(strings.TrimSpace(stdout), "b"), qt.Equals, true)
}

func exampleTable(t *testing.T) *table.Table {
	tbl, err := table.NewTable("population")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, tbl.AddColumn(table.NewStringSeries("country", []string{"sweden", "norway"}, nil)), qt.IsNil)
	qt.Assert(t, tbl.AddColumn(table.NewIntSeries("population", []int64{10420000, 5425000}, nil)), qt.IsNil)
	qt.Assert(t, tbl.SetPrimaryKey([]string{"country"}), qt.IsNil)
	return tbl
}
