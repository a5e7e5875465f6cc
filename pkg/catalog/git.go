package catalog

import (
	"context"
	"errors"

	"github.com/go-git/go-git/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dataforge/dataforge/dfapi"
	"github.com/dataforge/dataforge/pkg/logging"
	"github.com/dataforge/dataforge/pkg/tracing"
)

// CloneCatalog clones a catalog's git repository into a local directory
// and opens the result. Useful for working against a full catalog tree
// offline.
//
// Errors:
//
//    - dataforge-error-git -- when the clone fails
//    - dataforge-error-catalog-invalid -- when the clone holds no catalog
//    - dataforge-error-catalog-version -- when the catalog format is too new
//    - dataforge-error-catalog-parse -- when the metadata or an index
//      does not parse
//    - dataforge-error-io -- when reading fails
func CloneCatalog(ctx context.Context, gitURI string, dir string, channels ...dfapi.Channel) (*LocalCatalog, error) {
	ctx, span := tracing.Start(ctx, "clone catalog",
		trace.WithAttributes(attribute.String(tracing.AttrKeyCatalogUri, gitURI)))
	defer span.End()
	log := logging.Ctx(ctx)

	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:      gitURI,
		Depth:    1,
		Progress: log.InfoWriter(LogTag_Catalog),
	})
	if err != nil {
		tracing.SetSpanError(ctx, err)
		return nil, dfapi.ErrorGit("failed to clone catalog repository", err)
	}
	return OpenLocalCatalog(dir, channels...)
}

// UpdateCatalog pulls the latest changes into a cloned catalog and
// reloads its index. Already up to date is not an error.
//
// Errors:
//
//    - dataforge-error-git -- when the pull fails
//    - dataforge-error-catalog-invalid -- when the directory holds no catalog
//    - dataforge-error-catalog-version -- when the catalog format is too new
//    - dataforge-error-catalog-parse -- when the metadata or an index
//      does not parse
//    - dataforge-error-io -- when reading fails
func UpdateCatalog(ctx context.Context, dir string, channels ...dfapi.Channel) (*LocalCatalog, error) {
	ctx, span := tracing.Start(ctx, "update catalog")
	defer span.End()
	log := logging.Ctx(ctx)

	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, dfapi.ErrorGit("failed to open catalog repository", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, dfapi.ErrorGit("failed to open catalog worktree", err)
	}
	err = wt.PullContext(ctx, &git.PullOptions{
		Progress: log.InfoWriter(LogTag_Catalog),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		tracing.SetSpanError(ctx, err)
		return nil, dfapi.ErrorGit("failed to pull catalog repository", err)
	}
	return OpenLocalCatalog(dir, channels...)
}
