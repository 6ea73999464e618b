package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vestigo/internal/app"
	"github.com/ternarybob/vestigo/internal/common"
	"github.com/ternarybob/vestigo/internal/models"
	"github.com/ternarybob/vestigo/internal/server"
	"github.com/ternarybob/vestigo/internal/services/ingest"
	"github.com/ternarybob/vestigo/internal/services/reconciler"
)

// configPaths allows multiple -config flags; later files override earlier
// ones.
type configPaths []string

func (c *configPaths) String() string { return fmt.Sprintf("%v", *c) }

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

func main() {
	args := os.Args[1:]
	command := "serve"
	if len(args) > 0 {
		switch args[0] {
		case "serve", "validate", "scan", "repair", "ingest", "query", "version":
			command = args[0]
			args = args[1:]
		}
	}

	var exitCode int
	switch command {
	case "serve":
		exitCode = runServe(args)
	case "validate":
		exitCode = runValidate(args)
	case "scan":
		exitCode = runScan(args)
	case "repair":
		exitCode = runRepair(args)
	case "ingest":
		exitCode = runIngest(args)
	case "query":
		exitCode = runQuery(args)
	case "version":
		fmt.Printf("Vestigo version %s\n", common.GetVersion())
	}
	os.Exit(exitCode)
}

// bootstrap loads configuration and initializes the logger for a
// subcommand. Startup order: defaults, config files, env, CLI flags.
func bootstrap(configFiles configPaths, port int, host string) (*common.Config, arbor.ILogger, error) {
	if len(configFiles) == 0 {
		if _, err := os.Stat("vestigo.toml"); err == nil {
			configFiles = append(configFiles, "vestigo.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		return nil, nil, err
	}
	common.ApplyFlagOverrides(config, port, host)

	logger := common.InitLogger(config)
	return config, logger, nil
}

func newApp(configFiles configPaths, port int, host string) (*app.App, *common.Config, arbor.ILogger, error) {
	config, logger, err := bootstrap(configFiles, port, host)
	if err != nil {
		return nil, nil, nil, err
	}
	application, err := app.New(context.Background(), config, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return application, config, logger, nil
}

func fatal(err error, msg string) int {
	arbor.NewLogger().Error().Err(err).Msg(msg)
	return 1
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var configFiles configPaths
	fs.Var(&configFiles, "config", "Configuration file path (repeatable)")
	port := fs.Int("port", 0, "Server port (overrides config)")
	host := fs.String("host", "", "Server host (overrides config)")
	fs.Parse(args)

	application, config, logger, err := newApp(configFiles, *port, *host)
	if err != nil {
		return fatal(err, "Failed to initialize application")
	}
	defer application.Close()

	common.PrintBanner(common.GetVersion())

	if err := application.StartScheduler(); err != nil {
		logger.Error().Err(err).Msg("Failed to start audit scheduler")
	}

	srv := server.New(application)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info().Msg("Interrupt signal received")
	case <-srv.ShutdownRequested():
		logger.Info().Msg("Shutdown requested via HTTP")
	case err := <-serverErr:
		if err != nil {
			return fatal(err, "Server failed")
		}
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
		return 1
	}

	logger.Info().Msg("Server stopped")
	return 0
}

func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	var configFiles configPaths
	fs.Var(&configFiles, "config", "Configuration file path (repeatable)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: vestigo validate [flags] <vector-id>")
		return 2
	}
	id := fs.Arg(0)

	application, _, _, err := newApp(configFiles, 0, "")
	if err != nil {
		return fatal(err, "Failed to initialize application")
	}
	defer application.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	record, err := application.VectorStorage.FetchByID(ctx, id)
	if err != nil {
		record = nil
	}
	report := application.Validator.Validate(id, record)

	if report.IsValid {
		fmt.Printf("%s: valid\n", id)
		return 0
	}
	fmt.Printf("%s: invalid\n", id)
	for _, violation := range report.Violations {
		fmt.Printf("  - %s\n", violation)
	}
	return 1
}

func runScan(args []string) int {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	var configFiles configPaths
	fs.Var(&configFiles, "config", "Configuration file path (repeatable)")
	sourceType := fs.String("source-type", "", "Limit scan to one source type")
	landmarkID := fs.String("landmark", "", "Limit scan to one landmark")
	limit := fs.Int("limit", 0, "Max records to scan (0 = all)")
	checkEmbeddings := fs.Bool("check-embeddings", false, "Fetch values and validate embeddings")
	withCoverage := fs.Bool("coverage", false, "Include per-landmark coverage")
	fs.Parse(args)

	application, config, logger, err := newApp(configFiles, 0, "")
	if err != nil {
		return fatal(err, "Failed to initialize application")
	}
	defer application.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	opts := reconciler.ScanOptions{
		SourceType:      *sourceType,
		LandmarkID:      *landmarkID,
		Limit:           *limit,
		CheckEmbeddings: *checkEmbeddings,
	}

	var summary *models.BatchSummary
	if *withCoverage {
		var coverage *models.CoverageReport
		summary, coverage, err = application.Reconciler.ScanWithCoverage(ctx, opts)
		if err == nil {
			printJSON(map[string]interface{}{"summary": summary, "coverage": coverage})
		}
	} else {
		summary, err = application.Reconciler.Scan(ctx, opts)
		if err == nil {
			printJSON(summary)
		}
	}
	if err != nil {
		logger.Error().Err(err).Msg("Scan failed")
		return 1
	}

	threshold := config.Audit.PassThreshold
	if summary.PassRate() < threshold {
		fmt.Fprintf(os.Stderr, "Pass rate %.1f%% below threshold %.1f%%\n", summary.PassRate()*100, threshold*100)
		return 1
	}
	return 0
}

func runRepair(args []string) int {
	fs := flag.NewFlagSet("repair", flag.ExitOnError)
	var configFiles configPaths
	fs.Var(&configFiles, "config", "Configuration file path (repeatable)")
	apply := fs.Bool("apply", false, "Write repairs (default is dry run)")
	fs.Parse(args)

	application, _, logger, err := newApp(configFiles, 0, "")
	if err != nil {
		return fatal(err, "Failed to initialize application")
	}
	defer application.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	summary, err := application.Reconciler.RepairWikipediaTitles(ctx, !*apply)
	if err != nil {
		logger.Error().Err(err).Msg("Repair failed")
		return 1
	}
	printJSON(summary)
	return 0
}

func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	var configFiles configPaths
	fs.Var(&configFiles, "config", "Configuration file path (repeatable)")
	manifestPath := fs.String("manifest", "", "YAML ingestion manifest")
	landmarkID := fs.String("landmark", "", "Landmark LP number for single-source ingestion")
	wikiTitle := fs.String("wiki", "", "Wikipedia article title to ingest")
	pdfPath := fs.String("pdf", "", "Designation report PDF to ingest")
	fs.Parse(args)

	application, _, logger, err := newApp(configFiles, 0, "")
	if err != nil {
		return fatal(err, "Failed to initialize application")
	}
	defer application.Close()

	if application.IngestService == nil {
		fmt.Fprintln(os.Stderr, "Ingestion requires a configured embedding provider")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
	defer cancel()

	var summary *ingest.Summary
	switch {
	case *manifestPath != "":
		manifest, err := ingest.LoadManifest(*manifestPath)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to load manifest")
			return 1
		}
		summary, err = application.IngestService.IngestManifest(ctx, manifest)
		if err != nil {
			logger.Error().Err(err).Msg("Ingestion failed")
			return 1
		}
	case *landmarkID != "" && *wikiTitle != "":
		summary, err = application.IngestService.IngestWikipedia(ctx, *landmarkID, *wikiTitle)
	case *landmarkID != "" && *pdfPath != "":
		summary, err = application.IngestService.IngestPDF(ctx, *landmarkID, *pdfPath)
	default:
		fmt.Fprintln(os.Stderr, "Usage: vestigo ingest -manifest <file> | -landmark <lp> (-wiki <title> | -pdf <file>)")
		return 2
	}
	if err != nil {
		logger.Error().Err(err).Msg("Ingestion failed")
		return 1
	}

	printJSON(summary)
	if summary.Failed > 0 {
		return 1
	}
	return 0
}

func runQuery(args []string) int {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	var configFiles configPaths
	fs.Var(&configFiles, "config", "Configuration file path (repeatable)")
	topK := fs.Int("top-k", 5, "Number of chunks to retrieve")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, `Usage: vestigo query [flags] "<question>"`)
		return 2
	}

	application, _, logger, err := newApp(configFiles, 0, "")
	if err != nil {
		return fatal(err, "Failed to initialize application")
	}
	defer application.Close()

	if application.QueryService == nil {
		fmt.Fprintln(os.Stderr, "Querying requires a configured LLM provider")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	response, err := application.QueryService.Query(ctx, fs.Arg(0), *topK, nil)
	if err != nil {
		logger.Error().Err(err).Msg("Query failed")
		return 1
	}

	fmt.Println(response.Answer)
	if len(response.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, source := range response.Sources {
			fmt.Printf("  %s (%s)\n", source.ID, source.SourceType)
		}
	}
	return 0
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Println(string(data))
}
