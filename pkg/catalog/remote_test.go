package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/serum-errors/go-serum"

	"github.com/dataforge/dataforge/dfapi"
)

// serveCatalog exposes a local catalog tree over HTTP, the way the
// production catalog host does.
func serveCatalog(t *testing.T, c *LocalCatalog) *httptest.Server {
	srv := httptest.NewServer(http.FileServer(http.Dir(c.Path)))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenRemoteCatalog(t *testing.T) {
	local := buildCatalog(t)
	srv := serveCatalog(t, local)

	remote, err := OpenRemoteCatalog(context.Background(), srv.URL, dfapi.ChannelGarden)
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, len(remote.Frame.Rows), qt.Equals, 1)
}

func TestRemoteLoadTable(t *testing.T) {
	local := buildCatalog(t)
	srv := serveCatalog(t, local)

	remote, err := OpenRemoteCatalog(context.Background(), srv.URL)
	qt.Assert(t, err, qt.IsNil)

	ref, err := remote.Frame.FindOne(FindFilter{Table: "population"})
	qt.Assert(t, err, qt.IsNil)
	tbl, err := remote.LoadTable(context.Background(), ref)
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, tbl.Len(), qt.Equals, 2)
	qt.Check(t, tbl.PrimaryKey(), qt.DeepEquals, []string{"country", "year"})
	qt.Assert(t, tbl.Meta.Dataset, qt.IsNotNil)
	qt.Check(t, *tbl.Meta.Dataset.ShortName, qt.Equals, "demography")
}

func TestRemotePrivateTableNeedsWarehouse(t *testing.T) {
	local := buildCatalog(t)
	srv := serveCatalog(t, local)

	remote, err := OpenRemoteCatalog(context.Background(), srv.URL)
	qt.Assert(t, err, qt.IsNil)

	ref, err := remote.Frame.FindOne(FindFilter{Table: "population"})
	qt.Assert(t, err, qt.IsNil)
	ref.IsPublic = false
	_, err = remote.LoadTable(context.Background(), ref)
	qt.Check(t, serum.Code(err), qt.Equals, dfapi.ECodeInvalid)
}

func TestRemoteCatalogVersionGate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"format_version":%d}`, dfapi.CatalogFormatVersion+1)
	}))
	t.Cleanup(srv.Close)

	_, err := OpenRemoteCatalog(context.Background(), srv.URL)
	qt.Check(t, serum.Code(err), qt.Equals, dfapi.ECodeCatalogVersion)
}

func TestRemoteCatalogMissing(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	_, err := OpenRemoteCatalog(context.Background(), srv.URL)
	qt.Check(t, serum.Code(err), qt.Equals, dfapi.ECodeHttp)
}

func TestDefaultRemoteCaching(t *testing.T) {
	local := buildCatalog(t)
	srv := serveCatalog(t, local)

	SetDefaultCatalogURI(srv.URL)
	t.Cleanup(func() { SetDefaultCatalogURI(dfapi.DefaultCatalogURI) })

	c1, err := DefaultRemote(context.Background())
	qt.Assert(t, err, qt.IsNil)
	c2, err := DefaultRemote(context.Background(), dfapi.ChannelGarden)
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, c1 == c2, qt.Equals, true)

	refs, err := Find(context.Background(), FindFilter{Table: "population"})
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, len(refs), qt.Equals, 1)

	tbl, err := FindLatest(context.Background(), FindFilter{Table: "population"})
	qt.Assert(t, err, qt.IsNil)
	qt.Check(t, tbl.Len(), qt.Equals, 2)
}
