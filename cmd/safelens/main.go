// Command safelens is the CLI surface for SafeLens (spec §6, component
// J): a `verify` subcommand that checks an evidence package and a
// `sources` subcommand that prints the fixed source catalog.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/safelens/safelens/evidence"
	"github.com/safelens/safelens/report"
	"github.com/safelens/safelens/settings"
	"github.com/safelens/safelens/verifier"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	app := &cli.App{
		Name:  "safelens",
		Usage: "produce and verify Safe-wallet transaction evidence packages",
		Commands: []*cli.Command{
			verifyCommand(logger),
			sourcesCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func verifyCommand(logger *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "verify an evidence package and print a report",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Usage: "path to the evidence package JSON; reads stdin if omitted"},
			&cli.StringFlag{Name: "settings", Usage: "path to a settings (address book / contract registry) file"},
			&cli.BoolFlag{Name: "no-settings", Usage: "disable loading any settings file"},
			&cli.StringFlag{Name: "format", Value: "text", Usage: "output format: text or json"},
		},
		Action: func(c *cli.Context) error {
			return runVerify(c, logger)
		},
	}
}

func runVerify(c *cli.Context, logger *zap.Logger) error {
	data, err := readInput(c.String("file"))
	if err != nil {
		return fail(c, err, "I/O error: "+err.Error())
	}

	pkg, err := evidence.Parse(data)
	if err != nil {
		return fail(c, err, "Invalid JSON format: "+err.Error())
	}

	opts := verifier.Options{Logger: logger}
	if !c.Bool("no-settings") {
		if path := c.String("settings"); path != "" {
			store, err := settings.Load(path)
			if err != nil {
				return fail(c, err, "failed to load settings: "+err.Error())
			}
			opts.Settings = store
		}
	}

	rep := verifier.Verify(pkg, opts)

	switch c.String("format") {
	case "json":
		out, err := report.MarshalIndentJSON(rep)
		if err != nil {
			return fail(c, err, "failed to render report: "+err.Error())
		}
		fmt.Fprintln(c.App.Writer, string(out))
	default:
		if rep.OK {
			fmt.Fprint(c.App.Writer, report.Text(rep))
		} else {
			fmt.Fprint(c.App.ErrWriter, report.Text(rep))
		}
	}

	if !rep.OK {
		return cli.Exit("", 1)
	}
	return nil
}

func sourcesCommand() *cli.Command {
	return &cli.Command{
		Name:  "sources",
		Usage: "print the fixed verification-source catalog",
		Action: func(c *cli.Context) error {
			for _, entry := range fixedSourceCatalog() {
				fmt.Fprintf(c.App.Writer, "%-28s %-10s trust=%s\n", entry.id, entry.status, entry.trust)
			}
			return nil
		},
	}
}

type sourceCatalogEntry struct {
	id, status, trust string
}

// fixedSourceCatalog returns the catalog shape without a package to
// verify against (spec §4.6/§6); it mirrors the ids and trust tags the
// driver assigns at runtime, with status always "n/a" here since no
// package is loaded.
func fixedSourceCatalog() []sourceCatalogEntry {
	ids := []struct{ id, trust string }{
		{"evidence_package", "untrusted-input"},
		{"hash_recompute", "cryptographic"},
		{"signatures", "cryptographic"},
		{"signature_scheme_coverage", "cryptographic"},
		{"safe_owners_threshold", "unverified-declaration"},
		{"onchain_policy_proof", "attested"},
		{"decoded_calldata", "api-reconciled"},
		{"simulation", "unverified-declaration"},
		{"consensus_proof", "attested"},
		{"settings", "local-trusted"},
	}
	out := make([]sourceCatalogEntry, 0, len(ids))
	for _, e := range ids {
		out = append(out, sourceCatalogEntry{id: e.id, status: "n/a", trust: e.trust})
	}
	return out
}

func readInput(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func fail(c *cli.Context, err error, msg string) error {
	fmt.Fprintln(c.App.ErrWriter, msg)
	return cli.Exit("", 1)
}
