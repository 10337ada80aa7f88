package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/upi-statement-analyzer/internal/aggregate"
	"github.com/insightdelivered/upi-statement-analyzer/internal/api"
	"github.com/insightdelivered/upi-statement-analyzer/internal/config"
	"github.com/insightdelivered/upi-statement-analyzer/internal/logger"
	"github.com/insightdelivered/upi-statement-analyzer/internal/models"
	"github.com/insightdelivered/upi-statement-analyzer/internal/pipeline"
	"github.com/insightdelivered/upi-statement-analyzer/internal/writer"
)

const version = api.Version

func main() {
	// Amounts are JSON numbers in API responses and -format=json output.
	decimal.MarshalJSONWithoutQuotes = true

	// CLI flags
	bankFlag := flag.String("bank", "", "Statement layout: kotak, phonepe, canara, generic (auto-detected if omitted)")
	passwordFlag := flag.String("password", "", "Password for encrypted PDFs")
	outputFlag := flag.String("output", "", "Output file path (defaults to input filename with the format's extension)")
	formatFlag := flag.String("format", "csv", "Output format: csv, xlsx, json")
	headerFlag := flag.Bool("header", true, "Include metadata header rows in CSV")
	debugFlag := flag.Bool("debug", false, "Record per-line parse decisions and log at debug level")
	serveFlag := flag.Bool("serve", false, "Serve the HTTP API instead of converting files")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	helpFlag := flag.Bool("help", false, "Show usage help")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `UPI Statement Analyzer
by Insight Delivered

Extracts transactions from Indian bank and wallet statement PDFs,
categorizes them and summarizes spending.

Usage:
  upi-statement-analyzer [flags] <input.pdf> [input2.pdf ...]
  upi-statement-analyzer -serve

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Auto-detect layout and write statement.csv
  upi-statement-analyzer statement.pdf

  # Canara ledger to a workbook
  upi-statement-analyzer -bank=canara -format=xlsx statement.pdf

  # Password-protected PhonePe statement
  upi-statement-analyzer -bank=phonepe -password=secret phonepe.pdf

Supported layouts:
  kotak    - Kotak Mahindra Bank (amount with (Dr)/(Cr) suffix)
  phonepe  - PhonePe wallet (DEBIT/CREDIT type column)
  canara   - Canara Bank (deposits, withdrawals, balance columns)
  generic  - any statement with one dated transaction per line
`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("upi-statement-analyzer v%s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fatalf("Invalid configuration: %v\n", err)
	}
	level := cfg.LogLevel
	if *debugFlag {
		level = "debug"
	}
	log := logger.New(level)

	analyzer, err := pipeline.New(cfg)
	if err != nil {
		fatalf("Failed to initialize analyzer: %v\n", err)
	}

	if *serveFlag {
		if err := serve(cfg, analyzer, log); err != nil {
			fatalf("Server error: %v\n", err)
		}
		return
	}

	if *helpFlag || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	src, err := models.ParseSource(*bankFlag)
	if err != nil {
		fatalf("%v\n", err)
	}

	format := strings.ToLower(*formatFlag)
	switch format {
	case "csv", "xlsx", "json":
	default:
		fatalf("Unknown format %q. Supported: csv, xlsx, json\n", *formatFlag)
	}

	inputFiles := flag.Args()
	if *outputFlag != "" && len(inputFiles) > 1 {
		fatalf("-output can only be used with a single input file\n")
	}

	ctx := logger.WithContext(context.Background(), log)
	opts := pipeline.Options{Source: src, Password: *passwordFlag, Debug: *debugFlag}

	// Process each input file
	for _, inputPath := range inputFiles {
		job := fileJob{input: inputPath, output: *outputFlag, format: format, header: *headerFlag}
		if err := processFile(ctx, analyzer, job, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", inputPath, err)
			os.Exit(1)
		}
	}
}

type fileJob struct {
	input  string
	output string
	format string
	header bool
}

func processFile(ctx context.Context, analyzer *pipeline.Analyzer, job fileJob, opts pipeline.Options) error {
	ext := strings.ToLower(filepath.Ext(job.input))
	if ext != ".pdf" {
		return fmt.Errorf("expected .pdf file, got %q", ext)
	}

	data, err := os.ReadFile(job.input)
	if err != nil {
		return fmt.Errorf("input file not readable: %w", err)
	}

	fmt.Printf("Processing: %s\n", job.input)

	res, err := analyzer.Analyze(ctx, data, opts)
	if err != nil {
		return err
	}

	fmt.Printf("  Read %d page(s) using %s\n", res.PageCount, methodName(res.Diagnostics.ExtractionMethod))
	fmt.Printf("  Layout: %s\n", res.Source)
	fmt.Printf("  Found %d transaction(s)\n", len(res.Transactions))

	if len(res.Transactions) == 0 {
		fmt.Println("  Warning: No transactions found. The PDF format may not match expected patterns.")
		fmt.Println("  Try specifying the layout explicitly with -bank if auto-detection was used.")
	}
	if n := res.Diagnostics.DateFallbacks; n > 0 {
		fmt.Printf("  Warning: %d date(s) could not be parsed\n", n)
	}

	outPath := job.output
	if outPath == "" {
		outPath = strings.TrimSuffix(job.input, filepath.Ext(job.input)) + "." + job.format
	}

	analysis := analyzer.Summarize(res)
	if err := write(outPath, job, analysis); err != nil {
		return err
	}
	fmt.Printf("  Output: %s\n", outPath)

	printSummary(analysis.Summary)
	fmt.Println("  Done.")
	return nil
}

func write(path string, job fileJob, a models.Analysis) error {
	switch job.format {
	case "xlsx":
		w := &writer.XLSXWriter{}
		if err := w.WriteToFile(path, a); err != nil {
			return fmt.Errorf("XLSX write failed: %w", err)
		}
	case "json":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file %q: %w", path, err)
		}
		defer f.Close()
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(a); err != nil {
			return fmt.Errorf("JSON write failed: %w", err)
		}
	default:
		w := &writer.CSVWriter{IncludeHeader: job.header}
		if err := w.WriteToFile(path, a.Result); err != nil {
			return fmt.Errorf("CSV write failed: %w", err)
		}
	}
	return nil
}

func printSummary(s models.Summary) {
	fmt.Printf("  Spent: %s  Received: %s  Net: %s\n",
		writer.FormatINR(s.TotalSpent), writer.FormatINR(s.TotalReceived), writer.FormatINR(s.NetFlow))
	if s.Period != nil {
		fmt.Printf("  Period: %s to %s\n", s.Period.From.Format("02 Jan 2006"), s.Period.To.Format("02 Jan 2006"))
	}
	if s.ClosingBalance != nil {
		fmt.Printf("  Closing balance: %s\n", writer.FormatINR(*s.ClosingBalance))
	}
	for i, e := range aggregate.Sorted(s.CategoryBreakdown) {
		if i == 5 {
			break
		}
		fmt.Printf("    %-18s %14s  %5.1f%%  (%d)\n", e.Category, writer.FormatINR(e.Amount), e.Percentage, e.Count)
	}
}

func methodName(m string) string {
	if m == "" {
		return "no readable backend"
	}
	return m
}

func serve(cfg *config.Config, analyzer *pipeline.Analyzer, log zerolog.Logger) error {
	app := api.NewApp(&api.Handler{Analyzer: analyzer, Log: log}, cfg.Server.MaxUploadMB)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("version", version).Msg("server listening")
		errCh <- app.Listen(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
