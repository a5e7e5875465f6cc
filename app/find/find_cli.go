package findcli

import (
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/urfave/cli/v2"

	appbase "github.com/dataforge/dataforge/app/base"
	"github.com/dataforge/dataforge/app/base/util"
	"github.com/dataforge/dataforge/dfapi"
	"github.com/dataforge/dataforge/pkg/catalog"
	"github.com/dataforge/dataforge/pkg/logging"
)

func init() {
	appbase.App.Commands = append(appbase.App.Commands, findCmdDef)
}

var findCmdDef = &cli.Command{
	Name:      "find",
	Usage:     "Search a catalog's index for tables",
	ArgsUsage: "[table]",
	Description: heredoc.Doc(`
		Searches the catalog index. The table argument matches as a substring
		of table names; the other coordinates match exactly when given.

		By default the search hits the default remote catalog. Point --catalog
		at a url or a local directory to search elsewhere.
	`),
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "catalog",
			Usage: "Catalog to search: a url, or a local directory",
			Value: dfapi.DefaultCatalogURI,
		},
		&cli.StringFlag{
			Name:  "namespace",
			Usage: "Only match tables in this namespace",
		},
		&cli.StringFlag{
			Name:  "version",
			Usage: "Only match tables in this dataset version",
		},
		&cli.StringFlag{
			Name:  "dataset",
			Usage: "Only match tables in this dataset",
		},
		&cli.StringSliceFlag{
			Name:    "channel",
			Aliases: []string{"c"},
			Usage:   "Channel(s) to search; defaults to garden",
		},
	},
	Action: util.ChainCmdMiddleware(cmdFind,
		util.CmdMiddlewareLogging,
		util.CmdMiddlewareTracingConfig,
		util.CmdMiddlewareTracingSpan,
	),
}

func cmdFind(c *cli.Context) error {
	var channels []dfapi.Channel
	for _, name := range c.StringSlice("channel") {
		channels = append(channels, dfapi.Channel(name))
	}
	filter := catalog.FindFilter{
		Table:     c.Args().First(),
		Namespace: c.String("namespace"),
		Version:   c.String("version"),
		Dataset:   c.String("dataset"),
		Channels:  channels,
	}

	frame, err := openFrame(c, c.String("catalog"), channels)
	if err != nil {
		return err
	}
	matches, err := frame.Find(filter)
	if err != nil {
		return err
	}
	logger := logging.Ctx(c.Context)
	if len(matches) == 0 {
		logger.Info("", "no tables match")
		return nil
	}
	for _, row := range matches {
		dims, err := dfapi.MarshalStringList(row.Dimensions)
		if err != nil {
			return err
		}
		logger.Out("%s\t%s\t%s", row.Path, row.Format, dims)
	}
	return nil
}

// openFrame loads the index of either a remote or a local catalog,
// guessing which from the reference's shape.
func openFrame(c *cli.Context, ref string, channels []dfapi.Channel) (catalog.Frame, error) {
	if isURL(ref) {
		cat, err := catalog.OpenRemoteCatalog(c.Context, ref, channels...)
		if err != nil {
			return catalog.Frame{}, err
		}
		return cat.Frame, nil
	}
	cat, err := catalog.OpenLocalCatalog(ref, channels...)
	if err != nil {
		return catalog.Frame{}, err
	}
	return cat.Frame, nil
}

func isURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
