package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/app"
	"github.com/ternarybob/colligo/internal/common"
)

var (
	// Command-line flags
	configFile   = flag.String("config", "", "Configuration file path")
	configFileC  = flag.String("c", "", "Configuration file path (shorthand)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
	topK         = flag.Int("top-k", 0, "Number of chunks to retrieve (overrides config)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func usage() {
	fmt.Fprintf(os.Stderr, `Colligo - document metadata extraction and retrieval

Usage:
  colligo [flags] ingest <file> [<file>...]   Extract metadata and index documents
  colligo [flags] query <question>            Answer a question from indexed documents
  colligo [flags] delete <document-id>        Remove a document from the index

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Colligo version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}

	// Startup sequence:
	// 1. Load config (defaults -> file -> env)
	// 2. Initialize logger
	// 3. Print banner
	configPath := *configFile
	if *configFileC != "" {
		configPath = *configFileC
	}
	if configPath == "" {
		if _, err := os.Stat("colligo.toml"); err == nil {
			configPath = "colligo.toml"
		}
	}

	var err error
	config, err = common.LoadFromFile(configPath)
	if err != nil {
		// Config failed to load, so the configured logger is unavailable;
		// fall back to the console default.
		common.GetLogger().Fatal().Str("path", configPath).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	if *topK > 0 {
		config.Retrieval.TopK = *topK
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Str("config_file", configPath).
		Str("log_level", config.Logging.Level).
		Str("badger_path", config.Storage.Badger.Path).
		Msg("Application configuration loaded")

	ctx := context.Background()

	application, err := app.New(ctx, config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	command, commandArgs := args[0], args[1:]

	switch command {
	case "ingest":
		err = runIngest(ctx, application, commandArgs)
	case "query":
		err = runQuery(ctx, application, strings.Join(commandArgs, " "))
	case "delete":
		err = runDelete(ctx, application, commandArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Error().Err(err).Str("command", command).Msg("Command failed")
		os.Exit(1)
	}
}
