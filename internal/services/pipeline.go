package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/joaovfcarvalho/robo-bordero/internal/cache"
	"github.com/joaovfcarvalho/robo-bordero/internal/competitions"
	"github.com/joaovfcarvalho/robo-bordero/internal/config"
	"github.com/joaovfcarvalho/robo-bordero/internal/csvstore"
	"github.com/joaovfcarvalho/robo-bordero/internal/gcp"
	"github.com/joaovfcarvalho/robo-bordero/internal/models"
	"github.com/joaovfcarvalho/robo-bordero/internal/pkg/logger"
)

// ErrUnknownOperation is returned by ParseOperation.
var ErrUnknownOperation = errors.New("unknown operation")

// ParseOperation accepts an operation name or its menu number (1-3).
func ParseOperation(s string) (models.Operation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", string(models.OperationDownload):
		return models.OperationDownload, nil
	case "2", string(models.OperationProcess):
		return models.OperationProcess, nil
	case "3", "", string(models.OperationFull):
		return models.OperationFull, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOperation, s)
}

func downloads(op models.Operation) bool {
	return op == models.OperationDownload || op == models.OperationFull
}

func processes(op models.Operation) bool {
	return op == models.OperationProcess || op == models.OperationFull
}

// Pipeline runs the download and processing stages for one configuration.
// Runs are serialized: the stores are append-only files without locks, and
// the function entry points share one Pipeline between requests.
type Pipeline struct {
	mu sync.Mutex

	config     *config.Config
	deriver    *competitions.Deriver
	downloader *Downloader
	processor  *Processor
	exporter   CSVExporter
	handoff    WorkflowTrigger
	closers    []func() error
	log        *logger.Logger
}

// NewPipeline creates every client the operation needs. GCP clients are only
// created for the features that are configured.
func NewPipeline(ctx context.Context, cfg *config.Config, op models.Operation, log *logger.Logger) (*Pipeline, error) {
	if log == nil {
		log = logger.Nop()
	}
	if err := cfg.Validate(processes(op)); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	p := &Pipeline{config: cfg, log: log}
	p.deriver = competitions.NewDeriver(cfg.SumulasBaseURL, competitions.LoadRules(cfg.CompetitionsFile, log), log)

	var storageClient *storage.Client
	if cfg.PDFArchiveBucket != "" || (processes(op) && (cfg.CacheBucket != "" || cfg.ExportBucket != "")) {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		storageClient = client
		p.closers = append(p.closers, client.Close)
	}

	p.downloader = NewDownloader(DownloaderConfig{
		DownloadDir:       cfg.PDFDir,
		Timeout:           cfg.FetchTimeout,
		RequestsPerSecond: cfg.FetchRPS,
		ArchiveBucket:     cfg.PDFArchiveBucket,
	}, p.deriver, storageClient, log.With("component", "downloader"))

	if processes(op) {
		if err := p.initProcessing(ctx, storageClient); err != nil {
			_ = p.Close()
			return nil, err
		}
	}

	log.Info("Pipeline initialized.", "operation", op, "archiveBucket", cfg.PDFArchiveBucket,
		"cacheBucket", cfg.CacheBucket, "exportBucket", cfg.ExportBucket, "firestoreCollection", cfg.FirestoreCollection,
		"workflowId", cfg.NormalizeWorkflowID)
	return p, nil
}

func (p *Pipeline) initProcessing(ctx context.Context, storageClient *storage.Client) error {
	cfg := p.config

	vertexClient, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexAIRegion, cfg.GeminiModel)
	if err != nil {
		return fmt.Errorf("failed to create vertex client: %w", err)
	}
	p.closers = append(p.closers, vertexClient.Close)
	extractor := NewExtractor(vertexClient.ExtractorModel, ExtractorConfig{RequestsPerSecond: cfg.ExtractRPS}, p.log.With("component", "extractor"))

	var resultCache cache.Cache
	if cfg.CacheBucket != "" {
		gcsCache := cache.NewGCSCache(storageClient, cfg.CacheBucket, "cache", p.log)
		if n, err := gcsCache.Preload(ctx); err != nil {
			p.log.Warn("Failed to preload GCS cache index, falling back to per-document reads", "error", err)
		} else {
			p.log.Info("Loaded GCS cache index", "entries", n, "bucket", cfg.CacheBucket)
		}
		resultCache = gcsCache
	} else {
		fileCache, err := cache.NewFileCache(cfg.CacheDir, p.log)
		if err != nil {
			return err
		}
		resultCache = fileCache
	}

	var mirror StatusRecorder
	if cfg.FirestoreCollection != "" {
		firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
		if err != nil {
			return err
		}
		p.closers = append(p.closers, firestoreClient.Close)
		mirror = NewStatusMirror(firestoreClient, cfg.FirestoreCollection)
	}

	if cfg.ExportBucket != "" {
		p.exporter = NewGCSExporter(storageClient, cfg.ExportBucket, "csv")
	}

	if cfg.NormalizeWorkflowID != "" {
		handoff, err := NewHandoff(ctx, cfg.ProjectID, cfg.WorkflowLocation, cfg.NormalizeWorkflowID)
		if err != nil {
			return err
		}
		p.closers = append(p.closers, handoff.Close)
		p.handoff = handoff
	}

	p.processor = NewProcessor(ProcessorConfig{
		PDFDir:     cfg.PDFDir,
		SummaryCSV: cfg.SummaryCSV(),
		RevenueCSV: cfg.RevenueCSV(),
		ExpenseCSV: cfg.ExpenseCSV(),
	}, csvstore.New(p.log), extractor, resultCache, mirror, p.log.With("component", "processor"))
	return nil
}

// Run executes one operation. Zero values in req fall back to the configured
// year and competitions. Concurrent calls wait for each other.
func (p *Pipeline) Run(ctx context.Context, req models.IngestRequest, progress ProgressFunc) (*models.IngestResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	op, err := ParseOperation(string(req.Operation))
	if err != nil {
		return nil, err
	}
	year := req.Year
	if year == 0 {
		year = p.config.Year
	}
	competitionCodes := req.Competitions
	if len(competitionCodes) == 0 {
		competitionCodes = p.config.Competitions
	}

	runID := uuid.NewString()
	logCtx := p.log.With("runId", runID, "operation", op)
	resp := &models.IngestResponse{Status: "success", RunID: runID}
	logCtx.Info("Starting run.", "year", year, "competitions", competitionCodes)

	if downloads(op) {
		for _, code := range competitionCodes {
			files, err := p.downloader.Download(ctx, year, code, progress)
			resp.Downloaded += len(files)
			if err != nil {
				resp.Status = "cancelled"
				return resp, err
			}
		}
		logCtx.Info("PDF download stage finished.", "downloaded", resp.Downloaded)
	}

	if processes(op) {
		if p.processor == nil {
			return resp, errors.New("pipeline was not initialized for processing")
		}
		report, err := p.processor.Run(ctx, runID)
		if report != nil {
			resp.Recorded = report.Recorded()
			resp.Succeeded = report.Succeeded()
			resp.Failed = report.Failed()
		}
		if err != nil {
			resp.Status = "failed"
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				resp.Status = "cancelled"
			}
			return resp, err
		}
		p.publish(ctx, logCtx, report)
	}

	logCtx.Info("Run complete.", "downloaded", resp.Downloaded, "recorded", resp.Recorded, "succeeded", resp.Succeeded, "failed", resp.Failed)
	return resp, nil
}

// publish exports the stores and starts the normalization workflow when the
// run added rows. Failures are logged only; the rows are already on disk.
func (p *Pipeline) publish(ctx context.Context, logCtx *logger.Logger, report *RunReport) {
	if report.Recorded() == 0 {
		return
	}
	if p.exporter == nil {
		if p.handoff != nil {
			logCtx.Warn("Skipping hand-off: no export bucket configured")
		}
		return
	}

	summaryURI, err := p.exporter.Export(ctx, p.config.SummaryCSV())
	if err != nil {
		logCtx.Warn("Failed to export summary CSV, skipping hand-off", "error", err)
		return
	}
	args := models.NormalizeWorkflowArgs{
		RunID:      report.RunID,
		SummaryCSV: summaryURI,
		Recorded:   report.Recorded(),
		Succeeded:  report.Succeeded(),
	}
	args.RevenueCSV = p.exportDetail(ctx, logCtx, p.config.RevenueCSV())
	args.ExpenseCSV = p.exportDetail(ctx, logCtx, p.config.ExpenseCSV())
	logCtx.Info("Exported CSV stores.", "summaryCsv", args.SummaryCSV, "revenueCsv", args.RevenueCSV, "expenseCsv", args.ExpenseCSV)

	if p.handoff == nil {
		return
	}
	name, err := p.handoff.Trigger(ctx, args)
	if err != nil {
		logCtx.Warn("Failed to hand off to normalization workflow", "error", err)
		return
	}
	logCtx.Info("Hand-off to workflow complete.", "execution", name)
}

// exportDetail returns "" for a detail store that does not exist yet.
func (p *Pipeline) exportDetail(ctx context.Context, logCtx *logger.Logger, localPath string) string {
	uri, err := p.exporter.Export(ctx, localPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logCtx.Warn("Failed to export detail CSV", "path", localPath, "error", err)
		}
		return ""
	}
	return uri
}

// Close releases every client in reverse creation order.
func (p *Pipeline) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}
