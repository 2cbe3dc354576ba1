package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joaovfcarvalho/robo-bordero/internal/cache"
	"github.com/joaovfcarvalho/robo-bordero/internal/csvstore"
	"github.com/joaovfcarvalho/robo-bordero/internal/models"
	"github.com/joaovfcarvalho/robo-bordero/internal/pkg/logger"
)

// DocumentExtractor turns PDF bytes into an extraction result. *Extractor
// implements it.
type DocumentExtractor interface {
	Extract(ctx context.Context, pdf []byte) ExtractionResult
}

// StatusRecorder receives every summary record that reached the store.
// *StatusMirror implements it.
type StatusRecorder interface {
	Record(ctx context.Context, runID string, rec models.SummaryRecord) error
}

// ProcessorConfig holds the locations the processor reads and writes.
type ProcessorConfig struct {
	PDFDir     string
	SummaryCSV string
	RevenueCSV string
	ExpenseCSV string
}

// Processor is the ingestion driver: it is the only writer of the summary and
// detail stores and the only component that marks documents as processed.
type Processor struct {
	store     *csvstore.Store
	extractor DocumentExtractor
	cache     cache.Cache
	mirror    StatusRecorder
	config    ProcessorConfig
	now       func() time.Time
	log       *logger.Logger
}

// NewProcessor creates a Processor. resultCache and mirror may be nil.
func NewProcessor(cfg ProcessorConfig, store *csvstore.Store, extractor DocumentExtractor, resultCache cache.Cache, mirror StatusRecorder, log *logger.Logger) *Processor {
	if log == nil {
		log = logger.Nop()
	}
	return &Processor{
		store:     store,
		extractor: extractor,
		cache:     resultCache,
		mirror:    mirror,
		config:    cfg,
		now:       time.Now,
		log:       log,
	}
}

// Outcome is the result of processing one document. Every attempted document
// yields exactly one Outcome.
type Outcome struct {
	ID       string
	Status   models.Status
	Cached   bool
	Revenue  int
	Expenses int
	// Err is the failure behind an error status, or a failure to persist the
	// outcome itself.
	Err error
}

// RunReport summarizes one processing run.
type RunReport struct {
	RunID             string
	AlreadyProcessed  int
	Outcomes          []Outcome
	unpersistedStatus int
}

// Recorded is the number of documents that got a summary row in this run.
func (r *RunReport) Recorded() int {
	return len(r.Outcomes) - r.unpersistedStatus
}

func (r *RunReport) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == models.StatusSuccess && o.Err == nil {
			n++
		}
	}
	return n
}

func (r *RunReport) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// Run processes every local PDF that has no summary row yet. Failures are
// isolated per document: each one is recorded and the loop moves on. Only a
// failure to list the download directory or a cancelled context ends the run
// early; rows recorded before that stay in place.
func (p *Processor) Run(ctx context.Context, runID string) (*RunReport, error) {
	logCtx := p.log.With("runId", runID)
	report := &RunReport{RunID: runID}

	processed := NewProcessedSet(p.store.Read(p.config.SummaryCSV))
	logCtx.Info("Loaded processed document IDs", "count", processed.Len(), "summaryCsv", p.config.SummaryCSV)

	files, err := listPDFs(p.config.PDFDir)
	if err != nil {
		return report, err
	}

	for _, file := range files {
		id := strings.TrimSuffix(file, filepath.Ext(file))
		if processed.Has(id) {
			report.AlreadyProcessed++
			logCtx.Debug("Skipping already processed PDF", "documentId", id)
			continue
		}
		if err := ctx.Err(); err != nil {
			logCtx.Warn("Processing cancelled", "recorded", report.Recorded())
			return report, err
		}

		outcome := p.processDocument(ctx, logCtx.With("documentId", id), runID, id, filepath.Join(p.config.PDFDir, file))
		if err := interruptedCause(outcome.Err); err != nil {
			// Nothing was recorded; the document stays unseen for the next run.
			logCtx.Warn("Processing interrupted", "documentId", id, "recorded", report.Recorded(), "error", err)
			return report, err
		}
		processed.Add(id)
		report.Outcomes = append(report.Outcomes, outcome)
		if isUnpersisted(outcome.Err) {
			report.unpersistedStatus++
		}
	}

	logCtx.Info("Processing completed",
		"recorded", report.Recorded(),
		"succeeded", report.Succeeded(),
		"failed", report.Failed(),
		"alreadyProcessed", report.AlreadyProcessed)
	return report, nil
}

// processDocument walks one document to its recorded state. It never panics
// and always returns an Outcome.
func (p *Processor) processDocument(ctx context.Context, logCtx *logger.Logger, runID, id, pdfPath string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logCtx.Error("Panic while processing document", "panic", r)
			out = p.recordUnexpected(ctx, logCtx, runID, id, pdfPath, fmt.Errorf("panic: %v", r))
		}
	}()

	logCtx.Info("Processing PDF", "path", pdfPath)
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return p.recordUnexpected(ctx, logCtx, runID, id, pdfPath, fmt.Errorf("failed to read PDF: %w", err))
	}

	var result ExtractionResult
	cached := false
	if p.cache != nil {
		if extract, ok := p.cache.Get(ctx, id); ok {
			logCtx.Info("Using cached extraction result")
			result = ExtractionResult{Data: extract}
			cached = true
		}
	}
	if !cached {
		result = p.extractor.Extract(ctx, data)
	}
	if result.Interrupted != nil || (result.Failed() && ctx.Err() != nil) {
		cause := result.Interrupted
		if cause == nil {
			cause = ctx.Err()
		}
		return Outcome{ID: id, Err: &interruptedError{err: cause}}
	}

	if result.Failed() {
		errText := result.Error
		if errText == "" {
			errText = "extraction returned no data"
		}
		logCtx.Error("Error analyzing PDF", "error", errText)
		rec := failureSummary(id, pdfPath, models.StatusAnalysisError, errText, p.now())
		out := Outcome{ID: id, Status: models.StatusAnalysisError, Err: errors.New(errText)}
		if err := p.appendSummary(ctx, runID, rec); err != nil {
			logCtx.Error("Failed to record analysis error", "error", err)
			out.Err = &unpersistedError{err: err}
		}
		return out
	}

	if !cached && p.cache != nil {
		if err := p.cache.Put(ctx, id, result.Data); err != nil {
			logCtx.Warn("Failed to write extraction cache entry", "error", err)
		}
	}

	revenue, expenses := detailRecords(id, result.Data)
	// Both detail files are checked before either is written, so a header
	// mismatch never leaves half of a document's details behind.
	if len(revenue) > 0 {
		if err := p.store.CheckHeader(p.config.RevenueCSV, models.RevenueHeaders); err != nil {
			return p.recordUnexpected(ctx, logCtx, runID, id, pdfPath, fmt.Errorf("failed to save revenue details: %w", err))
		}
	}
	if len(expenses) > 0 {
		if err := p.store.CheckHeader(p.config.ExpenseCSV, models.ExpenseHeaders); err != nil {
			return p.recordUnexpected(ctx, logCtx, runID, id, pdfPath, fmt.Errorf("failed to save expense details: %w", err))
		}
	}
	// Detail rows go first; the summary row is the commit marker of a document.
	if len(revenue) > 0 {
		if err := p.store.Append(p.config.RevenueCSV, models.RevenueHeaders, toRows(revenue)); err != nil {
			return p.recordUnexpected(ctx, logCtx, runID, id, pdfPath, fmt.Errorf("failed to save revenue details: %w", err))
		}
	}
	if len(expenses) > 0 {
		if err := p.store.Append(p.config.ExpenseCSV, models.ExpenseHeaders, toRows(expenses)); err != nil {
			return p.recordUnexpected(ctx, logCtx, runID, id, pdfPath, fmt.Errorf("failed to save expense details: %w", err))
		}
	}

	rec := buildSummary(id, pdfPath, result.Data, p.now())
	out = Outcome{ID: id, Status: models.StatusSuccess, Cached: cached, Revenue: len(revenue), Expenses: len(expenses)}
	if err := p.appendSummary(ctx, runID, rec); err != nil {
		logCtx.Error("Failed to save summary row", "error", err)
		out.Err = &unpersistedError{err: err}
		return out
	}
	logCtx.Info("Successfully processed and saved data", "revenueItems", len(revenue), "expenseItems", len(expenses), "cached", cached)
	return out
}

// recordUnexpected records an Erro Inesperado row for a failure outside the
// extraction call itself.
func (p *Processor) recordUnexpected(ctx context.Context, logCtx *logger.Logger, runID, id, pdfPath string, cause error) Outcome {
	logCtx.Error("Unexpected error processing PDF", "error", cause)
	out := Outcome{ID: id, Status: models.StatusUnexpectedError, Err: cause}
	rec := failureSummary(id, pdfPath, models.StatusUnexpectedError, cause.Error(), p.now())
	if err := p.appendSummary(ctx, runID, rec); err != nil {
		logCtx.Error("Failed to record unexpected error", "error", err)
		out.Err = &unpersistedError{err: fmt.Errorf("%w (while recording: %v)", err, cause)}
	}
	return out
}

func (p *Processor) appendSummary(ctx context.Context, runID string, rec models.SummaryRecord) error {
	if err := p.store.Append(p.config.SummaryCSV, models.SummaryHeaders, []csvstore.Row{rec.ToRow()}); err != nil {
		return err
	}
	if p.mirror != nil {
		if err := p.mirror.Record(ctx, runID, rec); err != nil {
			p.log.Warn("Failed to mirror summary record", "documentId", rec.ID, "error", err)
		}
	}
	return nil
}

// unpersistedError marks an outcome whose summary row could not be written.
// The document has no row on disk and will be attempted again next run.
type unpersistedError struct {
	err error
}

func (e *unpersistedError) Error() string { return "summary row not persisted: " + e.err.Error() }
func (e *unpersistedError) Unwrap() error { return e.err }

// interruptedError marks a document whose extraction was cut short by the
// run's context.
type interruptedError struct {
	err error
}

func (e *interruptedError) Error() string { return "interrupted: " + e.err.Error() }
func (e *interruptedError) Unwrap() error { return e.err }

func interruptedCause(err error) error {
	var ie *interruptedError
	if errors.As(err, &ie) {
		return ie.err
	}
	return nil
}

func isUnpersisted(err error) bool {
	var u *unpersistedError
	return errors.As(err, &u)
}

// listPDFs returns the .pdf file names of dir sorted by name. A missing
// directory holds no documents.
func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list PDF directory %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			files = append(files, e.Name())
		}
	}
	return files, nil
}
