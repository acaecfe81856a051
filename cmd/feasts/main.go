// Command feasts prints the feast calendar for one or more years.
//
// Dates are computed from the March equinox and new-moon conjunctions with
// the Meeus ephemeris, or from a fixture file with --ephemeris. With --save
// the computed years are written to the same SQLite archive the API serves.
//
// Usage:
//
//	feasts --year 2025
//	feasts --from 2024 --to 2030 --format yaml
//	feasts --year 2025 --timezone UTC --evidence
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/zapponejosh/feast-calendar/internal/calendar"
	"github.com/zapponejosh/feast-calendar/internal/config"
	"github.com/zapponejosh/feast-calendar/internal/database"
	"github.com/zapponejosh/feast-calendar/internal/ephemeris"
	"github.com/zapponejosh/feast-calendar/internal/feasts"
	"github.com/zapponejosh/feast-calendar/internal/logger"
)

const maxCLIRange = 500

// options are the parsed command-line flags.
type options struct {
	year      int
	from      int
	to        int
	format    string
	timezone  string
	fixture   string
	save      bool
	dbPath    string
	evidence  bool
	logLevel  string
	showUsage bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	opts, flagSet, err := parseFlags(args, cfg, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if opts.showUsage {
		printUsage(flagSet, stderr)
		return nil
	}

	log := logger.New(stderr, opts.logLevel, "text")

	loc, err := calendar.LoadLocation(opts.timezone)
	if err != nil {
		return err
	}

	var eph feasts.Ephemeris = ephemeris.NewMeeus()
	source := database.SourceMeeus
	if opts.fixture != "" {
		table, err := ephemeris.LoadTable(opts.fixture)
		if err != nil {
			return err
		}
		eph, source = table, database.SourceFixture
	}

	calc := feasts.NewCalculator(eph, feasts.WithLocation(loc), feasts.WithLogger(log))

	years, err := calc.Range(ctx, opts.from, opts.to)
	if err != nil {
		return err
	}

	if opts.save {
		if err := archive(ctx, opts.dbPath, years, source, log); err != nil {
			return err
		}
	}

	switch opts.format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(years)
	case "yaml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(years); err != nil {
			return err
		}
		return enc.Close()
	default:
		return writeText(stdout, years, opts.evidence)
	}
}

func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (options, *pflag.FlagSet, error) {
	var opts options

	flagSet := pflag.NewFlagSet("feasts", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.IntVarP(&opts.year, "year", "y", 0, "year to compute (default: the current year)")
	flagSet.IntVar(&opts.from, "from", 0, "first year of a range")
	flagSet.IntVar(&opts.to, "to", 0, "last year of a range")
	flagSet.StringVarP(&opts.format, "format", "f", "text", "output format: text, json or yaml")
	flagSet.StringVar(&opts.timezone, "timezone", cfg.Timezone, "IANA zone whose civil day dates are reckoned in")
	flagSet.StringVar(&opts.fixture, "ephemeris", "", "fixture file (.json, .yaml) to use instead of the Meeus ephemeris")
	flagSet.BoolVar(&opts.save, "save", false, "write the computed years to the archive")
	flagSet.StringVar(&opts.dbPath, "db", cfg.DatabasePath, "archive database path")
	flagSet.BoolVar(&opts.evidence, "evidence", false, "include the derivation of each date in text output")
	flagSet.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	flagSet.BoolVarP(&opts.showUsage, "help", "h", false, "show help")
	flagSet.Usage = func() { printUsage(flagSet, stderr) }

	if err := flagSet.Parse(args); err != nil {
		return opts, flagSet, err
	}
	if opts.showUsage {
		return opts, flagSet, nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return opts, flagSet, fmt.Errorf("unexpected argument: %s", rest[0])
	}

	switch opts.format {
	case "text", "json", "yaml":
	default:
		return opts, flagSet, fmt.Errorf("--format must be text, json or yaml; got %q", opts.format)
	}

	rangeSet := flagSet.Changed("from") || flagSet.Changed("to")
	switch {
	case rangeSet && flagSet.Changed("year"):
		return opts, flagSet, errors.New("--year cannot be combined with --from/--to")
	case rangeSet:
		if !flagSet.Changed("from") || !flagSet.Changed("to") {
			return opts, flagSet, errors.New("--from and --to must be given together")
		}
	default:
		if !flagSet.Changed("year") {
			opts.year = time.Now().In(calendar.Jerusalem()).Year()
		}
		opts.from, opts.to = opts.year, opts.year
	}

	if opts.from > opts.to {
		return opts, flagSet, fmt.Errorf("--from %d is after --to %d", opts.from, opts.to)
	}
	if opts.to-opts.from+1 > maxCLIRange {
		return opts, flagSet, fmt.Errorf("range of %d years exceeds %d", opts.to-opts.from+1, maxCLIRange)
	}
	return opts, flagSet, nil
}

func printUsage(flagSet *pflag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, `feasts prints the annual feast calendar.

Usage:
  feasts [--year YEAR | --from YEAR --to YEAR] [flags]

Flags:
%s`, flagSet.FlagUsages())
}

func archive(ctx context.Context, path string, years []*feasts.Year, source string, log *slog.Logger) error {
	db, err := database.Open(database.DefaultConfig(path), log)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Migrate(ctx); err != nil {
		return err
	}
	for _, y := range years {
		if err := db.SaveYear(ctx, y, source); err != nil {
			return err
		}
	}
	log.Info("archived feast years",
		slog.Int("count", len(years)),
		slog.String("path", path),
	)
	return nil
}

func writeText(w io.Writer, years []*feasts.Year, evidence bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, y := range years {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "Feast calendar %d (%s)\n", y.Year, y.Timezone)
		for _, f := range y.Feasts {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, f.Label, calendar.FormatSpan(f.Date, f.EndDate))
			if evidence && f.Evidence.Note != "" {
				fmt.Fprintf(tw, "\t%s\t\n", f.Evidence.Note)
			}
		}
	}
	return tw.Flush()
}
