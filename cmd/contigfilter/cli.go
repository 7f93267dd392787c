package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/MrCreosote/contigfilter/internal/errors"
	"github.com/MrCreosote/contigfilter/internal/gateway"
	"github.com/MrCreosote/contigfilter/internal/mcp"
	"github.com/MrCreosote/contigfilter/internal/ops"
	"github.com/MrCreosote/contigfilter/internal/web"
)

// newCLIApp creates the CLI application with all commands.
// d may be nil when only help or version output is needed.
func newCLIApp(d *deps) *cli.App {
	app := &cli.App{
		Name:    "contigfilter",
		Usage:   "Remove contigs shorter than a minimum length from an assembly",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(d),
			filterCmd(d),
			importCmd(d),
			reportsCmd(d),
			statusCmd(),
			runJobCmd(d),
			uiCmd(d),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd creates the serve command.
func serveCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the MCP server on stdio (default when stdin is piped)",
		Action: func(c *cli.Context) error {
			pipeline, err := d.pipeline()
			if err != nil {
				return outputError(err)
			}
			h := mcp.NewHandlers(pipeline, d.cfg, buildInfo(), d.logger)
			return mcp.Run(h, d.cfg, Version)
		},
	}
}

// filterCmd creates the filter command.
func filterCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "filter",
		Usage: "Filter an assembly by minimum contig length, save the result and publish a report",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Usage: "Workspace to save the filtered assembly in"},
			&cli.StringFlag{Name: "ref", Aliases: []string{"r"}, Usage: "Reference of the assembly to filter"},
			&cli.Int64Flag{Name: "min-length", Aliases: []string{"m"}, Usage: "Minimum contig length to keep"},
			&cli.StringFlag{Name: "token", Usage: "Caller token (default: KB_AUTH_TOKEN)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.FilterContigsInput{
				WorkspaceName:    c.String("workspace"),
				AssemblyInputRef: c.String("ref"),
			}
			if c.IsSet("min-length") {
				minLength := c.Int64("min-length")
				input.MinLength = &minLength
			}

			// Reject bad input before any collaborator is built
			if _, err := ops.ValidateFilterInput(input); err != nil {
				return outputError(err)
			}

			pipeline, err := d.pipeline()
			if err != nil {
				return outputError(err)
			}

			token := c.String("token")
			if token == "" {
				token = d.cfg.Token
			}

			output, err := pipeline.FilterContigs(c.Context, gateway.Identity{Token: token}, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Register a local FASTA file with the local backend",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Value: "default", Usage: "Workspace name"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Assembly name (defaults to the file name)"},
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "FASTA file path"},
		},
		Action: func(c *cli.Context) error {
			store, err := d.localStore()
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Import(c.Context, store, d.cfg, d.importsDir(), ops.ImportInput{
				Workspace: c.String("workspace"),
				Name:      c.String("name"),
				Path:      c.String("path"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// reportsCmd creates the reports command.
func reportsCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "reports",
		Usage:     "List reports in the local backend, or show one by reference",
		ArgsUsage: "[ref]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			store, err := d.localStore()
			if err != nil {
				return outputError(err)
			}

			if c.NArg() > 0 {
				report, err := ops.GetReport(c.Context, store, c.Args().First())
				if err != nil {
					return outputError(err)
				}
				return outputJSON(report)
			}

			output, err := ops.ListReports(c.Context, store, ops.ListReportsInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// statusCmd creates the status command.
func statusCmd() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Print service state and build identity",
		Action: func(c *cli.Context) error {
			return outputJSON(ops.Status(buildInfo()))
		},
	}
}

// runJobCmd creates the run-job command.
func runJobCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "run-job",
		Usage:     "Execute a queued JSON-RPC call file and write the reply file",
		ArgsUsage: "<input.json> <output.json> <token>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 3 {
				return outputError(errors.NewInvalidParameter("args",
					fmt.Sprintf("expected <input.json> <output.json> <token>, got %d arguments", c.NArg())))
			}
			args := c.Args()

			pipeline, err := d.pipeline()
			if err != nil {
				return outputError(err)
			}

			job := &ops.Job{Pipeline: pipeline, Build: buildInfo()}
			if err := job.Run(c.Context, args.Get(0), args.Get(1), args.Get(2)); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// uiCmd creates the ui command.
func uiCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "ui",
		Usage: "Serve the read-only report viewer for the local backend",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			store, err := d.localStore()
			if err != nil {
				return outputError(err)
			}

			srv, err := web.NewServer(store, buildInfo(), d.logger, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(err)
			}
			return web.Run(srv, d.logger)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if fErr, ok := errors.As(err); ok {
		if fErr.Stage != "" {
			return cli.Exit(fmt.Sprintf("[%s] stage %s: %s", fErr.Code, fErr.Stage, fErr.Message), 1)
		}
		return cli.Exit(fmt.Sprintf("[%s] %s", fErr.Code, fErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
