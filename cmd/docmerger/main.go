package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/rameshbaboov/docmerger/internal/artifact"
	"github.com/rameshbaboov/docmerger/internal/config"
	"github.com/rameshbaboov/docmerger/internal/extract"
	"github.com/rameshbaboov/docmerger/internal/ledger"
	"github.com/rameshbaboov/docmerger/internal/merge"
)

// CLI flags parsed from command line.
type cliFlags struct {
	Config        string
	InputDir      string
	OutputDir     string
	OutputFile    string
	ProcessedFile string
	Strategy      string
	Interval      int
	Addr          string
	Once          bool
	Serve         bool
	ServeMCP      bool
	Status        bool
	JSON          bool
	Verbose       bool
	Version       bool
}

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var flags cliFlags

	fs := flag.NewFlagSet("docmerger", flag.ContinueOnError)
	fs.StringVar(&flags.Config, "config", "", "path to a docmerger.yml (default: ./docmerger.yml when present)")
	fs.StringVar(&flags.InputDir, "input-dir", "", "folder watched for source documents")
	fs.StringVar(&flags.OutputDir, "output-dir", "", "folder holding the merged artifact and the log")
	fs.StringVar(&flags.OutputFile, "output-file", "", "artifact filename inside the output folder")
	fs.StringVar(&flags.ProcessedFile, "processed-file", "", "path of the processing ledger CSV")
	fs.StringVar(&flags.Strategy, "strategy", "", "extraction strategy: splice or structural")
	fs.IntVar(&flags.Interval, "interval", 0, "seconds between merge passes in loop mode")
	fs.StringVar(&flags.Addr, "addr", "", "dashboard listen address for -serve")
	fs.BoolVar(&flags.Once, "once", false, "run a single merge pass and exit")
	fs.BoolVar(&flags.Serve, "serve", false, "run the web dashboard with an in-process merge loop")
	fs.BoolVar(&flags.ServeMCP, "serve-mcp", false, "run as an MCP server on stdio")
	fs.BoolVar(&flags.Status, "status", false, "print the merge status and exit")
	fs.BoolVar(&flags.JSON, "json", false, "print -status output as JSON")
	fs.BoolVar(&flags.Verbose, "verbose", false, "enable debug logging and per-file progress output")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Println(version)
		return nil
	}

	cfg, err := resolveSettings(fs, flags)
	if err != nil {
		return err
	}

	if flags.Status {
		return runStatus(cfg, flags.JSON)
	}

	switch {
	case flags.ServeMCP:
		return runMCP(cfg)
	case flags.Serve:
		return runServe(cfg)
	case flags.Once:
		return runOnce(cfg)
	default:
		return runLoop(cfg)
	}
}

// resolveSettings layers the configuration sources: defaults, then the YAML
// file, then any flag the user set explicitly.
func resolveSettings(fs *flag.FlagSet, flags cliFlags) (config.Settings, error) {
	var (
		cfg config.Settings
		err error
	)
	if flags.Config != "" {
		cfg, err = config.LoadFile(flags.Config)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return config.Settings{}, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input-dir":
			cfg.InputDir = flags.InputDir
		case "output-dir":
			cfg.OutputDir = flags.OutputDir
		case "output-file":
			cfg.OutputFile = flags.OutputFile
		case "processed-file":
			cfg.ProcessedFile = flags.ProcessedFile
		case "strategy":
			cfg.Strategy = flags.Strategy
		case "interval":
			cfg.IntervalSeconds = flags.Interval
		case "addr":
			cfg.Addr = flags.Addr
		case "verbose":
			cfg.Verbose = flags.Verbose
		}
	})

	if err := cfg.Validate(); err != nil {
		return config.Settings{}, err
	}
	return cfg, nil
}

// buildStack wires the merge driver and its collaborators from settings.
func buildStack(cfg config.Settings, log *zap.Logger) (*merge.Driver, *merge.Hub, error) {
	ex, err := extract.ForStrategy(extract.Strategy(cfg.Strategy))
	if err != nil {
		return nil, nil, err
	}
	led := ledger.New(cfg.ProcessedFile)
	store := artifact.NewStore(cfg.ArtifactPath())
	hub := merge.NewHub()
	driver := merge.NewDriver(merge.Config{InputDir: cfg.InputDir, Extension: cfg.Extension},
		led, store, ex, hub, log)
	return driver, hub, nil
}
