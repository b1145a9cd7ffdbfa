// Package main is the Kotae CLI entry point.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/catalog"
	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/query"
	"github.com/hyperjump/kotae/internal/querylog"
	"github.com/hyperjump/kotae/internal/rerank"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/splitter"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory takes precedence, so running from the project dir
// picks up the project's config.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "query":
		runQuery()
	case "docs":
		runDocs()
	case "batch":
		runBatch()
	case "chat":
		runChat()
	case "rebuild":
		runRebuild()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	idx := components.Indexer
	watchOpts := []watcher.Option{watcher.WithLogger(logger)}
	watchSvc := watcher.New(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		func(path string) {
			report, err := idx.IngestFile(context.Background(), path, nil)
			if err != nil {
				logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
				return
			}
			logger.Info("watched file ingested",
				zap.String("source", report.SourceID),
				zap.Int("chunks", report.ChunksIndexed))
		},
		watchOpts...,
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Watch.Directories) > 0 {
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
	}

	srv := server.NewServer(
		components.Orchestrator,
		components.Indexer,
		components.Catalog,
		components.Store,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchSvc.Stop()
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// parsePages parses a comma-separated list of zero-based page numbers.
func parsePages(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	pages := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid page number %q", part)
		}
		pages = append(pages, n)
	}
	return pages, nil
}

func parseOutputFormat(s string) (cli.OutputFormat, error) {
	switch s {
	case "text":
		return cli.OutputText, nil
	case "json":
		return cli.OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	text := fs.String("text", "", "ingest this text snippet instead of a file")
	source := fs.String("source", "", "source id for -text snippets")
	pattern := fs.String("pattern", "*", "glob pattern for directory ingest (e.g. *.pdf)")
	pagesFlag := fs.String("pages", "", "comma-separated zero-based PDF pages (default all)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if *text == "" && fs.NArg() < 1 {
		fmt.Println("Usage: kotae ingest [flags] <file-or-directory>")
		fmt.Println("       kotae ingest -text \"some snippet\" [-source id]")
		os.Exit(1)
	}
	pages, err := parsePages(*pagesFlag)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	components, logger := mustInitialize(*configPath)
	defer components.Close()
	defer logger.Sync()

	ctx := context.Background()
	if *text != "" {
		report, err := components.Indexer.IngestTexts(ctx, []string{*text}, *source)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
			os.Exit(1)
		}
		_ = cli.WriteIngestReport(os.Stdout, report, format)
		return
	}

	path := fs.Arg(0)
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		report, err := components.Indexer.IngestDirectory(ctx, path, *pattern)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Directory ingest failed: %v\n", err)
			os.Exit(1)
		}
		_ = cli.WriteDirectoryReport(os.Stdout, report, format)
		if report.Failed > 0 {
			os.Exit(1)
		}
		return
	}
	report, err := components.Indexer.IngestFile(ctx, path, pages)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}
	_ = cli.WriteIngestReport(os.Stdout, report, format)
}

// questionFromArgs joins all positional args with spaces so multi-word
// questions work with or without shell quoting.
func questionFromArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	topK := fs.Int("k", 0, "number of candidates to retrieve (0 = config default)")
	rerankFlag := fs.Bool("rerank", false, "rerank candidates with the configured rerank service")
	noSources := fs.Bool("no-sources", false, "omit source chunks from output")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	question := questionFromArgs(fs.Args())
	if question == "" {
		fmt.Println("Usage: kotae query [flags] <question>")
		os.Exit(1)
	}

	components, logger := mustInitialize(*configPath)
	defer components.Close()
	defer logger.Sync()

	opts := &models.QueryOptions{TopK: *topK, Rerank: *rerankFlag, NoSources: *noSources}
	result := components.Orchestrator.Query(context.Background(), question, opts)
	_ = cli.WriteQueryResult(os.Stdout, result, format)
	if result.Failed {
		os.Exit(1)
	}
}

func runDocs() {
	fs := flag.NewFlagSet("docs", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	topK := fs.Int("k", 0, "number of documents to retrieve (0 = config default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	question := questionFromArgs(fs.Args())
	if question == "" {
		fmt.Println("Usage: kotae docs [flags] <question>")
		os.Exit(1)
	}

	components, logger := mustInitialize(*configPath)
	defer components.Close()
	defer logger.Sync()

	docs, err := components.Orchestrator.RetrieveDocuments(
		context.Background(), question, &models.QueryOptions{TopK: *topK})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Retrieval failed: %v\n", err)
		os.Exit(1)
	}
	_ = cli.WriteRetrievalResponse(os.Stdout, &models.RetrievalResponse{
		Question:   question,
		Documents:  docs,
		TotalCount: len(docs),
	}, format)
}

// readQuestions reads one question per line, skipping blanks.
func readQuestions(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var questions []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			questions = append(questions, line)
		}
	}
	return questions, scanner.Err()
}

func runBatch() {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	topK := fs.Int("k", 0, "number of candidates to retrieve per question (0 = config default)")
	rerankFlag := fs.Bool("rerank", false, "rerank candidates with the configured rerank service")
	noSources := fs.Bool("no-sources", false, "omit source chunks from output")
	outputFormat := fs.String("output", "text", "output format: text or json")
	outFile := fs.String("out", "", "write results to this file instead of stdout")
	_ = fs.Parse(os.Args[2:])

	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae batch [flags] <questions-file>")
		fmt.Println("The file holds one question per line; blank lines are skipped.")
		os.Exit(1)
	}
	questions, err := readQuestions(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read questions: %v\n", err)
		os.Exit(1)
	}
	if len(questions) == 0 {
		fmt.Println("No questions found")
		return
	}

	components, logger := mustInitialize(*configPath)
	defer components.Close()
	defer logger.Sync()

	opts := &models.QueryOptions{TopK: *topK, Rerank: *rerankFlag, NoSources: *noSources}
	results := components.Orchestrator.BatchQuery(context.Background(), questions, opts)

	var out io.Writer = os.Stdout
	if *outFile != "" {
		f, err := os.Create(*outFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create output file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	if err := cli.WriteBatchResults(out, results, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if *outFile != "" {
		fmt.Printf("Wrote %d results to %s\n", len(results), *outFile)
	}
}

func runChat() {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	topK := fs.Int("k", 0, "number of candidates to retrieve (0 = config default)")
	rerankFlag := fs.Bool("rerank", false, "rerank candidates with the configured rerank service")
	_ = fs.Parse(os.Args[2:])

	components, logger := mustInitialize(*configPath)
	defer components.Close()
	defer logger.Sync()

	opts := &models.QueryOptions{TopK: *topK, Rerank: *rerankFlag}
	fmt.Println("Ask questions about your documents. Type \"exit\" or \"quit\" to leave.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			break
		}
		result := components.Orchestrator.Query(context.Background(), question, opts)
		_ = cli.WriteQueryResult(os.Stdout, result, cli.OutputText)
	}
}

func runRebuild() {
	fs := flag.NewFlagSet("rebuild", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	_ = fs.Parse(os.Args[2:])

	if !*yes {
		fmt.Print("This drops every indexed chunk. Continue? [y/N] ")
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() || strings.ToLower(strings.TrimSpace(scanner.Text())) != "y" {
			fmt.Println("Aborted")
			return
		}
	}

	components, logger := mustInitialize(*configPath)
	defer components.Close()
	defer logger.Sync()

	if err := components.Indexer.Rebuild(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Rebuild failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Collection rebuilt")
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()

	ctx := context.Background()
	vectorCount, err := components.Store.Count(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Count failed: %v\n", err)
		os.Exit(1)
	}
	sources, err := components.Catalog.CountSources(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Count sources failed: %v\n", err)
		os.Exit(1)
	}
	chunks, err := components.Catalog.CountChunks(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Count chunks failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("collection:     %s\n", cfg.Qdrant.Collection)
	fmt.Printf("vectors:        %d\n", vectorCount)
	fmt.Printf("sources:        %d\n", sources)
	fmt.Printf("chunks:         %d\n", chunks)
	fmt.Printf("embedding:      %s (%d dims)\n", cfg.Embedding.Model, cfg.Embedding.Dimensions)
	fmt.Printf("llm:            %s\n", cfg.LLM.Model)
	fmt.Printf("split strategy: %s\n", cfg.Split.Strategy)
	fmt.Printf("rerank:         %t\n", cfg.Rerank.URL != "")

	if recent, err := components.Catalog.ListRecent(ctx, 10); err == nil && len(recent) > 0 {
		fmt.Println("\nrecent ingests:")
		for _, rec := range recent {
			fmt.Printf("  %s  %s (%s): %d chunks\n",
				rec.IngestedAt.Format("2006-01-02 15:04"), rec.SourceID, rec.SourceType, rec.ChunkCount)
		}
	}
}

// mustInitialize loads config, builds the logger, and initializes components,
// exiting with a message on any failure.
func mustInitialize(configPath string) (*Components, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return components, logger
}

// Components holds initialized services.
type Components struct {
	Embedder     embedding.Embedder
	Generator    llm.Generator
	Store        vector.Store
	Catalog      *catalog.Catalog
	QueryLog     *querylog.Logger
	Indexer      *indexer.Indexer
	Orchestrator *query.Orchestrator
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Generator != nil {
		_ = c.Generator.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Catalog != nil {
		_ = c.Catalog.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	embedder, err := embedding.NewOpenAIEmbedder(
		cfg.OpenAIAPIKey,
		cfg.Embedding.Model,
		cfg.Embedding.Dimensions,
		cfg.Embedding.CacheSize,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	generator, err := llm.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.LLM.Model, cfg.LLM.Temperature)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	store, err := vector.NewQdrantStore(ctx, cfg.Qdrant.Host, cfg.Qdrant.Port, cfg.Qdrant.Collection, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vector backend: %w", err)
	}

	cat, err := catalog.New(cfg.Storage.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	queryLog, err := querylog.New(cfg.Storage.QueryLogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open query log: %w", err)
	}

	var split splitter.Splitter
	switch cfg.Split.Strategy {
	case "fixed":
		split = splitter.NewFixedSplitter(cfg.Split.ChunkSize, cfg.Split.ChunkOverlap)
	default:
		split, err = splitter.NewSemanticSplitter(embedder, cfg.Split.BufferSize, cfg.Split.BreakpointPercentile)
		if err != nil {
			return nil, fmt.Errorf("failed to create splitter: %w", err)
		}
	}

	idxOpts := []indexer.IndexerOption{indexer.WithCatalog(cat)}
	if debug {
		idxOpts = append(idxOpts, indexer.WithLogger(logger))
	}
	idx := indexer.NewIndexer(extract.NewExtractor(), split, embedder, store, cfg.Ingest.BatchSize, idxOpts...)

	composer := query.NewComposer(generator, cfg.LLM.AnswerLanguage)
	orchOpts := []query.OrchestratorOption{
		query.WithQueryLog(queryLog),
		query.WithLogger(logger),
	}
	if cfg.Rerank.URL != "" {
		reranker, err := rerank.NewHTTPReranker(
			cfg.Rerank.URL,
			cfg.Rerank.Model,
			time.Duration(cfg.Rerank.TimeoutSeconds)*time.Second,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create reranker: %w", err)
		}
		orchOpts = append(orchOpts, query.WithReranker(reranker))
	}
	orch := query.NewOrchestrator(embedder, store, composer, cfg.Query.TopK, orchOpts...)

	return &Components{
		Embedder:     embedder,
		Generator:    generator,
		Store:        store,
		Catalog:      cat,
		QueryLog:     queryLog,
		Indexer:      idx,
		Orchestrator: orch,
	}, nil
}

func printUsage() {
	fmt.Println(`kotae - Retrieval-augmented question answering over local documents

Usage:
  kotae server [flags]                 Start the HTTP server (with directory watching)
  kotae ingest [flags] <path>          Ingest a document or directory
  kotae ingest -text "..." [-source s] Ingest a raw text snippet
  kotae query [flags] <question>       Ask a question
  kotae docs [flags] <question>        Show retrieved documents without answering
  kotae batch [flags] <file>           Answer one question per line from a file
  kotae chat [flags]                   Interactive question loop
  kotae rebuild [flags]                Drop and recreate the vector collection
  kotae status [flags]                 Show collection and catalog counts
  kotae version                        Show version
  kotae help                           Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml,
                     or ./config.yaml when present)
  --output string    Output format: text or json (default: text)

Query Flags:
  -k int             Candidates to retrieve (default from config)
  --rerank           Rerank candidates with the configured rerank service
  --no-sources       Omit source chunks from output

Ingest Flags:
  --pattern string   Glob pattern for directory ingest (default: *)
  --pages string     Comma-separated zero-based PDF pages (default: all)
  --text string      Ingest this text instead of a file
  --source string    Source id for -text snippets

Examples:
  kotae server
  kotae ingest paper.pdf
  kotae ingest --pattern "*.pdf" ./papers
  kotae ingest -text "The capital of France is Paris." -source facts
  kotae query "What does the paper conclude?"
  kotae query -k 10 --rerank "What does the paper conclude?"
  kotae docs "vector databases"
  kotae batch questions.txt --output json --out answers.json
  kotae rebuild --yes
  kotae status`)
}
