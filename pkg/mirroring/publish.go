package mirroring

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dataforge/dataforge/dfapi"
	"github.com/dataforge/dataforge/pkg/logging"
	"github.com/dataforge/dataforge/pkg/tracing"
)

const LogTag_Mirror = "│   mirror"

// PublishDataset uploads every file of one dataset directory to the
// warehouse. Keys mirror the dataset's position in the catalog tree, so
// a remote catalog pointed at the bucket can load the result directly.
// datasetDir is the dataset directory on disk; relPath is its path
// relative to the catalog root, e.g. "garden/ns/2020/ds".
//
// Errors:
//
//    - dataforge-error-io -- when reading the dataset directory fails
//    - dataforge-error-warehouse -- when an existence check or upload fails
func PublishDataset(ctx context.Context, w *Warehouse, datasetDir string, relPath string) (err error) {
	ctx, span := tracing.Start(ctx, "publish dataset")
	defer func() { tracing.EndWithStatus(span, err) }()
	log := logging.Ctx(ctx)

	entries, err := os.ReadDir(datasetDir)
	if err != nil {
		return dfapi.ErrorIo("failed to read dataset directory", datasetDir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key := relPath + "/" + e.Name()
		exists, err := w.Has(ctx, key)
		if err != nil {
			return err
		}
		if exists {
			log.Debug(LogTag_Mirror, "replacing %s", key)
		} else {
			log.Debug(LogTag_Mirror, "uploading %s", key)
		}
		if err := w.Upload(ctx, filepath.Join(datasetDir, e.Name()), key); err != nil {
			return err
		}
	}
	log.Info(LogTag_Mirror, "published %s", relPath)
	return nil
}
