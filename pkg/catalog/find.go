package catalog

import (
	"context"
	"sync"

	"github.com/dataforge/dataforge/dfapi"
	"github.com/dataforge/dataforge/pkg/table"
)

// The package-level search functions hit the default remote catalog,
// opening it once and caching it for the life of the process. The
// cached catalog is reopened when a search asks for channels beyond
// what was loaded.

var (
	defaultMu     sync.Mutex
	defaultRemote *RemoteCatalog
	defaultURI    = dfapi.DefaultCatalogURI
)

// SetDefaultCatalogURI changes where the package-level search functions
// look, and drops any cached catalog. Mostly useful for tests and for
// pointing at a mirror.
func SetDefaultCatalogURI(uri string) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultURI = uri
	defaultRemote = nil
}

// DefaultRemote returns the cached default remote catalog, opening or
// reopening it as needed so it covers the given channels.
//
// Errors:
//
//    - dataforge-error-http -- when a fetch fails
//    - dataforge-error-catalog-parse -- when the catalog does not parse
//    - dataforge-error-catalog-version -- when the remote format is too new
//    - dataforge-error-serialization -- when index data does not parse
func DefaultRemote(ctx context.Context, channels ...dfapi.Channel) (*RemoteCatalog, error) {
	if len(channels) == 0 {
		channels = dfapi.DefaultChannels
	}
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRemote != nil && defaultRemote.Frame.HasChannels(channels) {
		return defaultRemote, nil
	}
	c, err := OpenRemoteCatalog(ctx, defaultURI, channels...)
	if err != nil {
		return nil, err
	}
	defaultRemote = c
	return c, nil
}

// Find searches the default remote catalog.
//
// Errors:
//
//    - dataforge-error-http -- when opening the catalog fails
//    - dataforge-error-catalog-parse -- when the catalog does not parse
//    - dataforge-error-catalog-version -- when the remote format is too new
//    - dataforge-error-serialization -- when index data does not parse
//    - dataforge-error-searching-filesystem -- when the filter names an
//      unloaded channel
func Find(ctx context.Context, filter FindFilter) ([]dfapi.TableRef, error) {
	c, err := DefaultRemote(ctx, filter.Channels...)
	if err != nil {
		return nil, err
	}
	return c.Frame.Find(filter)
}

// FindOne searches the default remote catalog for exactly one match and
// loads it.
//
// Errors:
//
//    - dataforge-error-http -- when a fetch fails
//    - dataforge-error-catalog-parse -- when the catalog does not parse
//    - dataforge-error-catalog-version -- when the remote format is too new
//    - dataforge-error-serialization -- when parsing fails
//    - dataforge-error-searching-filesystem -- when the filter names an
//      unloaded channel
//    - dataforge-error-missing -- when no table matches
//    - dataforge-error-invalid -- when more than one table matches, or
//      the table is private and no warehouse is configured
//    - dataforge-error-io -- when staging a download fails
//    - dataforge-error-warehouse -- when a private fetch fails
func FindOne(ctx context.Context, filter FindFilter) (*table.Table, error) {
	c, err := DefaultRemote(ctx, filter.Channels...)
	if err != nil {
		return nil, err
	}
	ref, err := c.Frame.FindOne(filter)
	if err != nil {
		return nil, err
	}
	return c.LoadTable(ctx, ref)
}

// FindLatest searches the default remote catalog for the newest version
// of a table and loads it.
//
// Errors:
//
//    - dataforge-error-http -- when a fetch fails
//    - dataforge-error-catalog-parse -- when the catalog does not parse
//    - dataforge-error-catalog-version -- when the remote format is too new
//    - dataforge-error-serialization -- when parsing fails
//    - dataforge-error-searching-filesystem -- when the filter names an
//      unloaded channel
//    - dataforge-error-missing -- when no table matches
//    - dataforge-error-invalid -- when the table is private and no
//      warehouse is configured
//    - dataforge-error-io -- when staging a download fails
//    - dataforge-error-warehouse -- when a private fetch fails
func FindLatest(ctx context.Context, filter FindFilter) (*table.Table, error) {
	c, err := DefaultRemote(ctx, filter.Channels...)
	if err != nil {
		return nil, err
	}
	ref, err := c.Frame.FindLatest(filter)
	if err != nil {
		return nil, err
	}
	return c.LoadTable(ctx, ref)
}
