package datasetcli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/urfave/cli/v2"

	appbase "github.com/dataforge/dataforge/app/base"
	"github.com/dataforge/dataforge/app/base/util"
	"github.com/dataforge/dataforge/dfapi"
	"github.com/dataforge/dataforge/pkg/catalog"
	"github.com/dataforge/dataforge/pkg/logging"
	"github.com/dataforge/dataforge/pkg/mirroring"
)

func init() {
	appbase.App.Commands = append(appbase.App.Commands, datasetCmdDef)
}

var datasetCmdDef = &cli.Command{
	Name:  "dataset",
	Usage: "Subcommands that operate on single datasets",
	Subcommands: []*cli.Command{
		{
			Name:      "show",
			Usage:     "Show a dataset's metadata and tables",
			ArgsUsage: "[path]",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "pretty",
					Usage: "Render the output as styled markdown",
				},
			},
			Action: util.ChainCmdMiddleware(cmdDatasetShow,
				util.CmdMiddlewareLogging,
				util.CmdMiddlewareTracingConfig,
				util.CmdMiddlewareTracingSpan,
			),
		},
		{
			Name:      "checksum",
			Usage:     "Compute a dataset's checksum; optionally store it",
			ArgsUsage: "[path]",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "update",
					Usage: "Write the computed checksum into the dataset's metadata",
				},
			},
			Action: util.ChainCmdMiddleware(cmdDatasetChecksum,
				util.CmdMiddlewareLogging,
				util.CmdMiddlewareTracingConfig,
				util.CmdMiddlewareTracingSpan,
			),
		},
		{
			Name:      "publish",
			Usage:     "Upload a dataset's files to a warehouse",
			ArgsUsage: "[path]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "bucket",
					Usage:    "Warehouse bucket to publish into",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "region",
					Usage: "Warehouse region",
				},
				&cli.StringFlag{
					Name:  "endpoint",
					Usage: "Warehouse endpoint, for non-AWS object stores",
				},
				&cli.StringFlag{
					Name:  "catalog-root",
					Usage: "Catalog root the dataset lives under; defaults to four levels up",
				},
			},
			Action: util.ChainCmdMiddleware(cmdDatasetPublish,
				util.CmdMiddlewareLogging,
				util.CmdMiddlewareTracingConfig,
				util.CmdMiddlewareTracingSpan,
			),
		},
	},
}

func argPath(c *cli.Context) string {
	if c.Args().Len() > 0 {
		return c.Args().First()
	}
	return "."
}

func cmdDatasetShow(c *cli.Context) error {
	ds, err := catalog.OpenDataset(argPath(c))
	if err != nil {
		return err
	}
	logger := logging.Ctx(c.Context)

	serial, err := dfapi.MarshalDatasetMeta(&ds.Meta)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		logger.OutRaw(string(serial) + "\n")
		return nil
	}

	var doc strings.Builder
	title := "(untitled)"
	if ds.Meta.Title != nil {
		title = *ds.Meta.Title
	}
	fmt.Fprintf(&doc, "# %s\n\n", title)
	if ds.Meta.Description != nil {
		fmt.Fprintf(&doc, "%s\n\n", *ds.Meta.Description)
	}
	fmt.Fprintf(&doc, "```json\n%s\n```\n\n", serial)
	fmt.Fprintf(&doc, "## Tables\n\n")
	for _, name := range ds.TableNames() {
		fmt.Fprintf(&doc, "- %s\n", name)
	}

	if !c.Bool("pretty") {
		logger.OutRaw(doc.String())
		return nil
	}
	rendered, err := glamour.Render(doc.String(), "auto")
	if err != nil {
		return err
	}
	logger.OutRaw(rendered)
	return nil
}

func cmdDatasetChecksum(c *cli.Context) error {
	ds, err := catalog.OpenDataset(argPath(c))
	if err != nil {
		return err
	}
	logger := logging.Ctx(c.Context)
	if c.Bool("update") {
		if err := ds.UpdateChecksum(); err != nil {
			return err
		}
		logger.Out("%s", *ds.Meta.SourceChecksum)
		return nil
	}
	sum, err := ds.Checksum()
	if err != nil {
		return err
	}
	logger.Out("%s", sum)
	return nil
}

func cmdDatasetPublish(c *cli.Context) error {
	path, err := filepath.Abs(argPath(c))
	if err != nil {
		return fmt.Errorf("failed to resolve dataset path: %w", err)
	}
	ds, err := catalog.OpenDataset(path)
	if err != nil {
		return err
	}

	root := c.String("catalog-root")
	if root == "" {
		// datasets live at <root>/channel/namespace/version/dataset
		root = filepath.Dir(filepath.Dir(filepath.Dir(filepath.Dir(path))))
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve catalog root: %w", err)
	}
	relPath, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(relPath, "..") {
		return fmt.Errorf("dataset %q does not live under catalog root %q", path, root)
	}

	w, err := mirroring.NewWarehouse(c.Context, mirroring.WarehouseConfig{
		Endpoint: c.String("endpoint"),
		Region:   c.String("region"),
		Bucket:   c.String("bucket"),
	})
	if err != nil {
		return err
	}
	return mirroring.PublishDataset(c.Context, w, ds.Path, filepath.ToSlash(relPath))
}
