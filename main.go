package main

import (
	"fmt"
	"os"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/cockroachdb/errors"
	"github.com/gigurra/subscription-ledger/internal"
)

type Params struct {
	File       string `descr:"Opportunity export to process, optionally prefixed with a source (opportunities-csv:export.txt)" positional:"true" optional:"true"`
	Config     string `descr:"Path to config file (default: ~/.subscription-ledger/config.yaml)" optional:"true"`
	Source     string `descr:"Data source type (default: detected from the file extension)" optional:"true"`
	InDir      string `descr:"Process every export in this directory instead of a single file" optional:"true"`
	OutDir     string `descr:"Directory for reconstructed ledgers (default: next to the input)" optional:"true"`
	ArchiveDir string `descr:"Move processed inputs to this directory" optional:"true"`
	Format     string `descr:"Ledger file format" alts:"csv,xlsx" strict:"true" default:"csv"`
	Output     string `descr:"Status summary format" alts:"table,json" strict:"true" default:"table"`
	Show       string `descr:"Accounts to list in the table" alts:"all,active,ended,other" strict:"true" default:"all"`
	AsOf       string `descr:"Processing month YYYY-MM; open subscriptions bill up to this month (default: current month)" optional:"true"`
	Currency   string `descr:"Currency code for report amounts (default: from config, USD)" optional:"true"`
	Log        string `descr:"Log mode" alts:"quiet,development,production" strict:"true" default:"quiet"`
	InitConfig bool   `descr:"Write a default config file to --config and exit" optional:"true"`
}

func main() {
	boa.NewCmdT[Params]("subscription-ledger").
		WithShort("Reconstruct monthly subscription billing from closed-won opportunities").
		WithLong("Classifies each opportunity in a subscription lifecycle, fills in the monthly billing rows between lifecycle events, writes the reconstructed ledger and reports each account's current subscription status.").
		WithRunFunc(func(params *Params) {
			if err := run(params); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				for _, hint := range errors.GetAllHints(err) {
					fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
				}
				os.Exit(1)
			}
		}).
		Run()
}

func run(params *Params) error {
	configPath := params.Config
	if configPath == "" {
		configPath = internal.DefaultConfigPath()
	}

	if params.InitConfig {
		if err := internal.NewDefaultConfig().Save(configPath); err != nil {
			return err
		}
		fmt.Printf("Wrote default config to %s\n", configPath)
		return nil
	}

	cfg, err := loadConfig(configPath, params.Config != "")
	if err != nil {
		return err
	}

	log, err := internal.NewLogger(params.Log)
	if err != nil {
		return errors.Wrap(err, "creating logger")
	}
	defer log.Sync()

	now := time.Now()
	if params.AsOf != "" {
		asOf, err := time.Parse("2006-01", params.AsOf)
		if err != nil {
			return errors.WithHint(errors.Newf("invalid --as-of %q", params.AsOf), "use YYYY-MM, e.g. 2025-03")
		}
		now = asOf
	}

	currencyCode := cfg.CurrencyCode()
	if params.Currency != "" {
		currencyCode = params.Currency
	}
	opts := internal.BatchOptions{
		Options: internal.Options{
			Config: cfg,
			Now:    now,
			Logger: log,
		},
		Source:     params.Source,
		Format:     params.Format,
		OutDir:     params.OutDir,
		ArchiveDir: params.ArchiveDir,
	}
	report := reporter{
		output:   params.Output,
		show:     params.Show,
		currency: internal.GetCurrency(currencyCode),
	}

	switch {
	case params.InDir != "":
		results, err := internal.ProcessDir(params.InDir, opts)
		for _, res := range results {
			if rerr := report.print(res); rerr != nil {
				return rerr
			}
		}
		if len(results) == 0 && err == nil {
			fmt.Fprintf(os.Stderr, "No input files found in %s\n", params.InDir)
		}
		return err

	case params.File != "":
		source, path := internal.ParseFileArg(params.File)
		if source != "" {
			opts.Source = source
		}
		res, err := internal.ProcessFile(path, opts)
		if err != nil && res.Output == "" {
			return err
		}
		if rerr := report.print(res); rerr != nil {
			return rerr
		}
		return err

	default:
		return errors.WithHint(errors.New("no input given"), "pass an export file or --in-dir")
	}
}

// loadConfig reads the config file. A missing default config falls back to
// built-in defaults; a missing explicit config is an error.
func loadConfig(path string, explicit bool) (*internal.Config, error) {
	if path == "" {
		return internal.NewDefaultConfig(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) && !explicit {
		return internal.NewDefaultConfig(), nil
	}
	return internal.LoadConfig(path)
}

type reporter struct {
	output   string
	show     string
	currency internal.Currency
}

func (r reporter) print(res internal.FileResult) error {
	if r.output == "json" {
		return internal.PrintStatusJSON(os.Stdout, res.Summary, res.Result.DateRange, r.currency)
	}

	fmt.Printf("Processed %s (%d records)\n", res.Input, len(res.Result.Records))
	fmt.Printf("Ledger written to %s\n", res.Output)
	if res.Archived != "" {
		fmt.Printf("Input archived to %s\n", res.Archived)
	}
	fmt.Println()
	internal.PrintStatusTable(os.Stdout, res.Summary, res.Result.DateRange, internal.OutputOptions{
		ShowFilter: r.show,
		Currency:   r.currency,
	})
	internal.PrintAnomalies(os.Stderr, res.Result.Anomalies)
	return nil
}
