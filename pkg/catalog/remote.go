package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dataforge/dataforge/dfapi"
	"github.com/dataforge/dataforge/pkg/dab"
	"github.com/dataforge/dataforge/pkg/mirroring"
	"github.com/dataforge/dataforge/pkg/table"
	"github.com/dataforge/dataforge/pkg/tracing"
)

// RemoteCatalog is a catalog served over HTTP. Opening one downloads
// the index for the requested channels; tables are fetched on demand.
//
// Public tables come straight off the catalog host. Private tables
// need a warehouse client attached via SetWarehouse.
type RemoteCatalog struct {
	// URI is the catalog base, always ending in a slash.
	URI   string
	Frame Frame

	client    *http.Client
	warehouse *mirroring.Warehouse
}

// OpenRemoteCatalog fetches a remote catalog's metadata and the index
// for the requested channels.
//
// Refuses to proceed when the remote catalog's format is newer than
// this build supports; the error says to update.
//
// Errors:
//
//    - dataforge-error-http -- when a fetch fails
//    - dataforge-error-catalog-parse -- when the metadata or an index
//      does not parse
//    - dataforge-error-catalog-version -- when the remote format is too new
//    - dataforge-error-serialization -- when index feather data does not parse
func OpenRemoteCatalog(ctx context.Context, uri string, channels ...dfapi.Channel) (*RemoteCatalog, error) {
	if len(channels) == 0 {
		channels = dfapi.DefaultChannels
	}
	if !strings.HasSuffix(uri, "/") {
		uri += "/"
	}
	ctx, span := tracing.Start(ctx, "open remote catalog",
		trace.WithAttributes(attribute.String(tracing.AttrKeyCatalogUri, uri)))
	defer span.End()

	c := &RemoteCatalog{
		URI: uri,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}

	metaSerial, err := c.fetch(ctx, uri+dab.MagicFilename_CatalogMetadata)
	if err != nil {
		return nil, err
	}
	meta, err := dab.ParseCatalogMetadata(dab.MagicFilename_CatalogMetadata, metaSerial)
	if err != nil {
		return nil, err
	}
	if meta.FormatVersion > dfapi.CatalogFormatVersion {
		return nil, dfapi.ErrorCatalogVersion(dfapi.CatalogFormatVersion, meta.FormatVersion)
	}

	var rows []dfapi.TableRef
	for _, channel := range channels {
		data, err := c.fetch(ctx, uri+dab.IndexFilename(channel))
		if err != nil {
			return nil, err
		}
		t, err := table.DecodeFeather(data)
		if err != nil {
			return nil, err
		}
		channelRows, err := tableToRows(t)
		if err != nil {
			return nil, err
		}
		rows = append(rows, channelRows...)
	}
	c.Frame = NewFrame(rows, channels)
	return c, nil
}

// SetWarehouse attaches a warehouse client, enabling loads of private
// tables.
func (c *RemoteCatalog) SetWarehouse(w *mirroring.Warehouse) {
	c.warehouse = w
}

// LoadTable downloads and parses the table an index row points at.
//
// Errors:
//
//    - dataforge-error-http -- when a fetch fails
//    - dataforge-error-warehouse -- when the table is private and the
//      warehouse fetch fails
//    - dataforge-error-invalid -- when the table is private and no
//      warehouse is attached
//    - dataforge-error-io -- when staging the download fails
//    - dataforge-error-serialization -- when parsing fails
func (c *RemoteCatalog) LoadTable(ctx context.Context, ref dfapi.TableRef) (*table.Table, error) {
	ctx, span := tracing.Start(ctx, "load remote table",
		trace.WithAttributes(
			attribute.String(tracing.AttrKeyTableName, ref.Table),
			attribute.String(tracing.AttrKeyTableFormat, string(ref.Format)),
		))
	defer span.End()

	dataName := ref.Table + "." + string(ref.Format)
	sidecarName := dab.SidecarPath(dataName)
	dataKey := ref.Path + "." + string(ref.Format)
	sidecarKey := dab.SidecarPath(dataKey)

	// stage both files in a scratch directory, then load as usual
	tmp, err := os.MkdirTemp("", "dataforge-"+uuid.NewString())
	if err != nil {
		return nil, dfapi.ErrorIo("failed to create scratch directory", "", err)
	}
	defer os.RemoveAll(tmp)

	if ref.IsPublic {
		if err := c.fetchToFile(ctx, c.URI+dataKey, filepath.Join(tmp, dataName)); err != nil {
			return nil, err
		}
		if err := c.fetchToFile(ctx, c.URI+sidecarKey, filepath.Join(tmp, sidecarName)); err != nil {
			return nil, err
		}
	} else {
		if c.warehouse == nil {
			return nil, dfapi.ErrorInvalid(
				fmt.Sprintf("table %q is private and no warehouse is configured", ref.Table),
				[2]string{"table", ref.Table})
		}
		if err := c.warehouse.Download(ctx, dataKey, filepath.Join(tmp, dataName)); err != nil {
			return nil, err
		}
		if err := c.warehouse.Download(ctx, sidecarKey, filepath.Join(tmp, sidecarName)); err != nil {
			return nil, err
		}
	}

	fsys := os.DirFS(tmp)
	switch ref.Format {
	case dfapi.FormatCSV:
		return table.ReadCSVFile(fsys, dataName)
	default:
		return table.ReadFeatherFile(fsys, dataName)
	}
}

// fetch downloads one URI into memory.
//
// Errors:
//
//    - dataforge-error-http -- when the request fails or the response is
//      not a 200
func (c *RemoteCatalog) fetch(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, dfapi.ErrorHttp("failed to build request", uri, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, dfapi.ErrorHttp("request failed", uri, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, dfapi.ErrorHttp("request failed", uri,
			fmt.Errorf("unexpected status: %s", resp.Status))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, dfapi.ErrorHttp("failed to read response", uri, err)
	}
	return data, nil
}

// fetchToFile downloads one URI into a local file.
//
// Errors:
//
//    - dataforge-error-http -- when the request fails
//    - dataforge-error-io -- when the local file cannot be written
func (c *RemoteCatalog) fetchToFile(ctx context.Context, uri string, localPath string) error {
	data, err := c.fetch(ctx, uri)
	if err != nil {
		return err
	}
	if err := os.WriteFile(localPath, data, 0644); err != nil {
		return dfapi.ErrorIo("failed to write download target", localPath, err)
	}
	return nil
}
