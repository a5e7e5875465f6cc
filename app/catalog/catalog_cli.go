package catalogcli

import (
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc"
	"github.com/urfave/cli/v2"

	appbase "github.com/dataforge/dataforge/app/base"
	"github.com/dataforge/dataforge/app/base/util"
	"github.com/dataforge/dataforge/dfapi"
	"github.com/dataforge/dataforge/pkg/catalog"
	"github.com/dataforge/dataforge/pkg/logging"
)

func init() {
	appbase.App.Commands = append(appbase.App.Commands, catalogCmdDef)
}

var catalogCmdDef = &cli.Command{
	Name:  "catalog",
	Usage: "Subcommands that operate on catalogs",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "channel",
			Aliases: []string{"c"},
			Usage:   "Channel(s) to operate on; defaults to garden",
		},
	},
	Subcommands: []*cli.Command{
		{
			Name:      "init",
			Usage:     "Create an empty catalog at the given directory",
			ArgsUsage: "[path]",
			Action: util.ChainCmdMiddleware(cmdCatalogInit,
				util.CmdMiddlewareLogging,
				util.CmdMiddlewareTracingConfig,
				util.CmdMiddlewareTracingSpan,
			),
		},
		{
			Name:      "reindex",
			Usage:     "Rescan a catalog directory and rebuild its index",
			ArgsUsage: "[path]",
			Description: heredoc.Doc(`
				Walks the catalog tree looking for dataset directories and rebuilds
				the per-channel index files from what it finds.

				With --include, only datasets whose path matches the given regular
				expression are rescanned; the rest of the index is kept as is.
			`),
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "include",
					Usage: "Only reindex datasets whose path matches this regular expression",
				},
			},
			Action: util.ChainCmdMiddleware(cmdCatalogReindex,
				util.CmdMiddlewareLogging,
				util.CmdMiddlewareTracingConfig,
				util.CmdMiddlewareTracingSpan,
			),
		},
		{
			Name:      "ls",
			Usage:     "List the tables in a catalog's index",
			ArgsUsage: "[path or url]",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "remote",
					Usage: "Treat the argument as a remote catalog url",
				},
			},
			Action: util.ChainCmdMiddleware(cmdCatalogLs,
				util.CmdMiddlewareLogging,
				util.CmdMiddlewareTracingConfig,
				util.CmdMiddlewareTracingSpan,
			),
		},
		{
			Name:      "update",
			Usage:     "Clone or pull a catalog's git repository, then reload its index",
			ArgsUsage: "[path]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "from",
					Usage: "Git url to clone when the directory does not hold a catalog yet",
				},
			},
			Action: util.ChainCmdMiddleware(cmdCatalogUpdate,
				util.CmdMiddlewareLogging,
				util.CmdMiddlewareTracingConfig,
				util.CmdMiddlewareTracingSpan,
			),
		},
	},
}

func argChannels(c *cli.Context) []dfapi.Channel {
	var result []dfapi.Channel
	for _, name := range c.StringSlice("channel") {
		result = append(result, dfapi.Channel(name))
	}
	return result
}

func argPath(c *cli.Context) string {
	if c.Args().Len() > 0 {
		return c.Args().First()
	}
	return "."
}

func cmdCatalogInit(c *cli.Context) error {
	path := argPath(c)
	if _, err := catalog.InitLocalCatalog(path, argChannels(c)...); err != nil {
		return err
	}
	logger := logging.Ctx(c.Context)
	logger.Out("initialized empty catalog at %s", path)
	return nil
}

func cmdCatalogReindex(c *cli.Context) error {
	cat, err := catalog.OpenLocalCatalog(argPath(c), argChannels(c)...)
	if err != nil {
		return err
	}
	return cat.Reindex(c.Context, c.String("include"))
}

func cmdCatalogLs(c *cli.Context) error {
	var frame catalog.Frame
	if c.Bool("remote") {
		if c.Args().Len() < 1 {
			return fmt.Errorf("no catalog url provided")
		}
		cat, err := catalog.OpenRemoteCatalog(c.Context, c.Args().First(), argChannels(c)...)
		if err != nil {
			return err
		}
		frame = cat.Frame
	} else {
		cat, err := catalog.OpenLocalCatalog(argPath(c), argChannels(c)...)
		if err != nil {
			return err
		}
		frame = cat.Frame
	}
	logger := logging.Ctx(c.Context)
	for _, row := range frame.Rows {
		logger.Out("%s", row.Path)
	}
	return nil
}

func cmdCatalogUpdate(c *cli.Context) error {
	path := argPath(c)
	if _, err := os.Stat(path); err != nil {
		from := c.String("from")
		if from == "" {
			return fmt.Errorf("directory %q does not exist and no --from url given", path)
		}
		_, err := catalog.CloneCatalog(c.Context, from, path, argChannels(c)...)
		return err
	}
	_, err := catalog.UpdateCatalog(c.Context, path, argChannels(c)...)
	return err
}
