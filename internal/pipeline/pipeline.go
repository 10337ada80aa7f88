// Package pipeline runs one statement through extraction, parsing,
// normalization and categorization.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/insightdelivered/upi-statement-analyzer/internal/aggregate"
	"github.com/insightdelivered/upi-statement-analyzer/internal/categorize"
	"github.com/insightdelivered/upi-statement-analyzer/internal/config"
	"github.com/insightdelivered/upi-statement-analyzer/internal/extractor"
	"github.com/insightdelivered/upi-statement-analyzer/internal/logger"
	"github.com/insightdelivered/upi-statement-analyzer/internal/metrics"
	"github.com/insightdelivered/upi-statement-analyzer/internal/models"
	"github.com/insightdelivered/upi-statement-analyzer/internal/normalize"
	"github.com/insightdelivered/upi-statement-analyzer/internal/parser"
)

// Options are per-request settings.
type Options struct {
	Source   models.Source // empty or generic means auto-detect
	Password string
	Debug    bool
}

// Analyzer is safe for concurrent use. Its caches are shared across
// requests.
type Analyzer struct {
	extraction  config.ExtractionConfig
	workers     int
	parallelMin int

	extractor   *extractor.Extractor
	normalizer  *normalize.Normalizer
	categorizer *categorize.Categorizer
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithExtractor replaces the default backend chain.
func WithExtractor(e *extractor.Extractor) Option {
	return func(a *Analyzer) { a.extractor = e }
}

// WithClock sets the timestamp used for unparseable dates.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.normalizer.Now = now }
}

// New builds an Analyzer from cfg.
func New(cfg *config.Config, opts ...Option) (*Analyzer, error) {
	norm, err := normalize.New(cfg.Cache.DateEntries)
	if err != nil {
		return nil, err
	}
	cat, err := categorize.New(cfg.Cache.CategoryEntries)
	if err != nil {
		return nil, err
	}

	a := &Analyzer{
		extraction:  cfg.Extraction,
		workers:     cfg.Categorize.Workers,
		parallelMin: cfg.Categorize.ParallelMin,
		extractor: extractor.New(extractor.Options{
			PageBatch:       cfg.Extraction.PageBatch,
			EnablePdftotext: cfg.Extraction.EnablePdftotext,
			EnableOCR:       cfg.Extraction.EnableOCR,
		}),
		normalizer:  norm,
		categorizer: cat,
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// Analyze extracts the transactions in a PDF. A readable document with no
// recognizable transactions is not an error; the result is simply empty.
// Errors wrap extractor.ErrInput, extractor.ErrEncryptedDocument,
// extractor.ErrSizeLimit or the context error.
func (a *Analyzer) Analyze(ctx context.Context, data []byte, opts Options) (*models.Result, error) {
	start := time.Now()
	if a.extraction.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.extraction.Timeout)
		defer cancel()
	}

	id := uuid.NewString()
	log := logger.FromContext(ctx).With().Str("request_id", id).Logger()
	ctx = logger.WithContext(ctx, log)

	src := opts.Source
	auto := src == "" || src == models.SourceGeneric
	if auto {
		src = models.SourceGeneric
	}

	res := &models.Result{
		RequestID:    id,
		Source:       src,
		Transactions: []models.Transaction{},
		Diagnostics: models.Diagnostics{
			LinesPerPage:           []int{},
			ExtractionMethodsTried: []string{},
			Errors:                 []string{},
		},
	}

	raw, err := a.extract(ctx, data, opts, auto, res)
	if err != nil {
		metrics.Documents.WithLabelValues(string(res.Source), outcome(err)).Inc()
		log.Warn().Err(err).Str("source", string(res.Source)).Msg("analysis failed")
		return nil, err
	}

	txns := a.normalizeAll(raw, opts.Debug, &res.Diagnostics)
	if err := a.categorizeAll(ctx, res.Source, txns); err != nil {
		metrics.Documents.WithLabelValues(string(res.Source), outcome(err)).Inc()
		return nil, fmt.Errorf("categorize: %w", err)
	}
	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].Date.Before(txns[j].Date)
	})
	res.Transactions = txns

	elapsed := time.Since(start)
	res.Diagnostics.Elapsed = elapsed.Round(time.Millisecond).String()

	result := "ok"
	if len(txns) == 0 {
		result = "empty"
	}
	metrics.Documents.WithLabelValues(string(res.Source), result).Inc()
	metrics.Transactions.WithLabelValues(string(res.Source)).Add(float64(len(txns)))
	metrics.Duration.WithLabelValues(string(res.Source)).Observe(elapsed.Seconds())

	log.Info().
		Str("source", string(res.Source)).
		Str("method", res.Diagnostics.ExtractionMethod).
		Int("pages", res.PageCount).
		Int("transactions", len(txns)).
		Int("date_fallbacks", res.Diagnostics.DateFallbacks).
		Int("unsigned_defaults", res.Diagnostics.UnsignedDefaults).
		Dur("elapsed", elapsed).
		Msg("statement analyzed")
	return res, nil
}

// extract opens the document, runs the text backends and, when the text
// yields nothing, the table backend. It fills res with page and extraction
// diagnostics and returns the raw transactions.
func (a *Analyzer) extract(ctx context.Context, data []byte, opts Options, auto bool, res *models.Result) ([]models.RawTransaction, error) {
	log := logger.FromContext(ctx)

	doc, err := extractor.Open(ctx, data, extractor.OpenOptions{
		Password:     opts.Password,
		MaxPages:     a.extraction.MaxPages,
		SoftMaxPages: a.extraction.SoftMaxPages,
	})
	if err != nil {
		return nil, fmt.Errorf("open statement: %w", err)
	}
	res.PageCount = doc.PageCount()
	diag := &res.Diagnostics

	text, err := a.extractor.ExtractText(ctx, doc)
	merge(diag, text)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	diag.LinesPerPage = text.LinesPerPage()

	if auto {
		res.Source = parser.AutoDetect(text.Texts())
	}
	p, err := parser.New(res.Source, opts.Debug)
	if err != nil {
		return nil, err
	}

	out := p.ParseLines(text.Lines())
	if len(out.Transactions) > 0 {
		diag.ExtractionMethod = text.Method
		log.Debug().Str("method", text.Method).Str("profile", p.Profile().Name).
			Int("transactions", len(out.Transactions)).Msg("parsed text")
		return finish(diag, out, opts.Debug), nil
	}

	reason := "no transactions in text"
	if text.Method == "" {
		reason = "no readable text"
	}
	log.Info().Str("method", "table").Str("reason", reason).Int("pages", res.PageCount).
		Msg("falling back to table extraction")

	tables, err := a.extractor.ExtractTables(ctx, doc)
	merge(diag, tables)
	if err != nil {
		return nil, fmt.Errorf("extract tables: %w", err)
	}
	diag.TablesFound = tables.TablesFound

	rows := tables.Rows()
	if len(rows) == 0 {
		log.Info().Str("method", "table").Str("reason", "no rows").Msg("no transactions found")
		return finish(diag, out, opts.Debug), nil
	}

	if auto && res.Source == models.SourceGeneric {
		if detected := parser.AutoDetect(tables.Texts()); detected != res.Source {
			res.Source = detected
			if p, err = parser.New(detected, opts.Debug); err != nil {
				return nil, err
			}
		}
	}

	rowsOut := p.ParseRows(rows)
	if len(rowsOut.Transactions) == 0 {
		log.Info().Str("method", "table").Str("reason", "no transaction rows").
			Int("rows", len(rows)).Msg("no transactions found")
		out.Lines = append(out.Lines, rowsOut.Lines...)
		return finish(diag, out, opts.Debug), nil
	}
	diag.ExtractionMethod = tables.Method
	if len(diag.LinesPerPage) == 0 {
		diag.LinesPerPage = tables.LinesPerPage()
	}
	return finish(diag, rowsOut, opts.Debug), nil
}

func merge(diag *models.Diagnostics, c *extractor.Content) {
	if c == nil {
		return
	}
	diag.ExtractionMethodsTried = append(diag.ExtractionMethodsTried, c.Tried...)
	diag.Errors = append(diag.Errors, c.Errors...)
	if c.PagesProcessed > diag.PagesProcessed {
		diag.PagesProcessed = c.PagesProcessed
	}
}

func finish(diag *models.Diagnostics, out *parser.Output, debug bool) []models.RawTransaction {
	if debug {
		diag.Lines = out.Lines
	}
	return out.Transactions
}

func (a *Analyzer) normalizeAll(raw []models.RawTransaction, debug bool, diag *models.Diagnostics) []models.Transaction {
	txns := make([]models.Transaction, 0, len(raw))
	for _, r := range raw {
		t := a.normalizer.Transaction(r)
		if t.DateFallback {
			diag.DateFallbacks++
		}
		if t.SignSource == models.SignDefault {
			diag.UnsignedDefaults++
		}
		if !debug {
			t.ParseMethod = ""
		}
		txns = append(txns, t)
	}
	return txns
}

// categorizeAll labels txns in place. Large lists are split into one chunk
// per worker.
func (a *Analyzer) categorizeAll(ctx context.Context, src models.Source, txns []models.Transaction) error {
	label := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			txns[i].Category = a.categorizer.Categorize(src, txns[i].Description, txns[i].Amount)
		}
	}

	if a.workers <= 1 || len(txns) < a.parallelMin {
		label(0, len(txns))
		return ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	chunk := (len(txns) + a.workers - 1) / a.workers
	for lo := 0; lo < len(txns); lo += chunk {
		lo := lo
		hi := min(lo+chunk, len(txns))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			label(lo, hi)
			return nil
		})
	}
	return g.Wait()
}

// Summarize attaches summary statistics to a result.
func (a *Analyzer) Summarize(res *models.Result) models.Analysis {
	return models.Analysis{
		Result:  res,
		Summary: aggregate.Summarize(res.Transactions),
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, extractor.ErrEncryptedDocument):
		return "encrypted"
	case errors.Is(err, extractor.ErrSizeLimit):
		return "size_limit"
	case errors.Is(err, extractor.ErrInput):
		return "input"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "error"
	}
}
