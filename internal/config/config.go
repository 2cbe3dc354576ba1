// Package config resolves the runtime settings of the ingestion pipeline from
// the environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingSetting is returned by Validate when a required value is absent.
var ErrMissingSetting = errors.New("missing required setting")

const (
	SummaryFile = "jogos_resumo.csv"
	RevenueFile = "receitas_detalhe.csv"
	ExpenseFile = "despesas_detalhe.csv"
)

type Config struct {
	Year         int
	Competitions []string

	PDFDir   string
	CSVDir   string
	CacheDir string

	// Optional GCS buckets. Empty disables the feature.
	CacheBucket      string
	PDFArchiveBucket string
	// ExportBucket receives the store files after a run; required by the
	// workflow hand-off.
	ExportBucket string

	ProjectID      string
	VertexAIRegion string
	GeminiModel    string

	CompetitionsFile string
	SumulasBaseURL   string
	FetchTimeout     time.Duration
	FetchRPS         float64
	ExtractRPS       float64

	FirestoreCollection string
	NormalizeWorkflowID string
	WorkflowLocation    string

	LogMode string
}

// Load reads the first .env file found among envFiles (missing files are
// ignored) and then resolves every setting from the environment.
func Load(envFiles ...string) (*Config, string) {
	loadedFrom := ""
	for _, path := range envFiles {
		if err := godotenv.Load(path); err == nil {
			loadedFrom = path
			break
		}
	}

	cfg := &Config{
		Year:                GetEnvInt("YEAR", time.Now().Year()),
		Competitions:        GetEnvList("COMPETITIONS", []string{"142", "424", "242"}),
		PDFDir:              GetEnv("PDF_DIR", "pdfs"),
		CSVDir:              GetEnv("CSV_DIR", "csv"),
		CacheDir:            GetEnv("CACHE_DIR", "cache"),
		CacheBucket:         GetEnv("CACHE_BUCKET", ""),
		PDFArchiveBucket:    GetEnv("PDF_ARCHIVE_BUCKET", ""),
		ExportBucket:        GetEnv("EXPORT_BUCKET", ""),
		ProjectID:           GetEnv("PROJECT_ID", ""),
		VertexAIRegion:      GetEnv("VERTEX_AI_REGION", "us-central1"),
		GeminiModel:         GetEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		CompetitionsFile:    GetEnv("COMPETITIONS_FILE", ""),
		SumulasBaseURL:      GetEnv("SUMULAS_BASE_URL", "https://conteudo.cbf.com.br/sumulas"),
		FetchTimeout:        GetEnvDuration("FETCH_TIMEOUT", 10*time.Second),
		FetchRPS:            GetEnvFloat("FETCH_RPS", 5),
		ExtractRPS:          GetEnvFloat("EXTRACT_RPS", 1),
		FirestoreCollection: GetEnv("FIRESTORE_COLLECTION", ""),
		NormalizeWorkflowID: GetEnv("NORMALIZE_WORKFLOW_ID", ""),
		WorkflowLocation:    GetEnv("WORKFLOW_LOCATION", "us-central1"),
		LogMode:             GetEnv("LOG_MODE", "development"),
	}
	return cfg, loadedFrom
}

// Validate checks the settings needed by an operation. Extraction needs a
// Vertex AI project; downloading only needs somewhere to write.
func (c *Config) Validate(needsExtraction bool) error {
	if c.PDFDir == "" || c.CSVDir == "" {
		return fmt.Errorf("%w: PDF_DIR and CSV_DIR", ErrMissingSetting)
	}
	if c.Year <= 0 {
		return fmt.Errorf("invalid YEAR %d", c.Year)
	}
	if needsExtraction && c.ProjectID == "" {
		return fmt.Errorf("%w: PROJECT_ID", ErrMissingSetting)
	}
	if needsExtraction && c.NormalizeWorkflowID != "" && c.ExportBucket == "" {
		return fmt.Errorf("%w: EXPORT_BUCKET is required by NORMALIZE_WORKFLOW_ID", ErrMissingSetting)
	}
	return nil
}

func (c *Config) SummaryCSV() string { return filepath.Join(c.CSVDir, SummaryFile) }
func (c *Config) RevenueCSV() string { return filepath.Join(c.CSVDir, RevenueFile) }
func (c *Config) ExpenseCSV() string { return filepath.Join(c.CSVDir, ExpenseFile) }

// EnsureDirs creates the local working directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.PDFDir, c.CSVDir, c.CacheDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
