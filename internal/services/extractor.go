package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/time/rate"

	"github.com/joaovfcarvalho/robo-bordero/internal/gcp"
	"github.com/joaovfcarvalho/robo-bordero/internal/models"
	"github.com/joaovfcarvalho/robo-bordero/internal/pkg/logger"
)

// ContentGenerator is the part of *genai.GenerativeModel the extractor uses.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// ExtractionResult is the single shape every extraction outcome is reduced
// to. Exactly one of Data and Error is set.
type ExtractionResult struct {
	Data  *models.BorderoExtract
	Error string
	// RawResponse holds the model text when it could not be parsed.
	RawResponse string
	// Interrupted is set when the call was cut short by the caller's context.
	// Such a result says nothing about the document and must not be recorded.
	Interrupted error
}

func (r ExtractionResult) Failed() bool {
	return r.Error != "" || r.Data == nil
}

// ExtractorConfig holds configuration for the extractor.
type ExtractorConfig struct {
	RequestsPerSecond float64
	// SkipPreflight disables the local PDF structure check before the model call.
	SkipPreflight bool
}

// Extractor sends a borderô to the extraction model and normalizes the answer.
type Extractor struct {
	model   ContentGenerator
	limiter *rate.Limiter
	config  ExtractorConfig
	log     *logger.Logger
}

func NewExtractor(generator ContentGenerator, cfg ExtractorConfig, log *logger.Logger) *Extractor {
	if log == nil {
		log = logger.Nop()
	}
	return &Extractor{
		model:   generator,
		limiter: newLimiter(cfg.RequestsPerSecond),
		config:  cfg,
		log:     log,
	}
}

// Extract analyzes one PDF. It never returns a Go error: every failure,
// including a panic inside the client, comes back as ExtractionResult.Error.
func (e *Extractor) Extract(ctx context.Context, pdf []byte) (res ExtractionResult) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("Panic during extraction call", "panic", r)
			res = failure(fmt.Sprintf("An unexpected error occurred: %v", r))
		}
	}()

	if len(pdf) == 0 {
		e.log.Error("PDF content bytes are empty.")
		return failure("PDF content bytes are empty.")
	}

	if !e.config.SkipPreflight {
		pages, err := pageCount(pdf)
		if err != nil {
			e.log.Warn("PDF failed structural validation, not sending to model", "error", err)
			return failure(fmt.Sprintf("Invalid PDF document: %v", err))
		}
		e.log.Debug("PDF validated", "pageCount", pages, "sizeBytes", len(pdf))
	}

	if err := e.limiter.Wait(ctx); err != nil {
		// Wait fails early when the next token lies past the deadline.
		return interrupted(ctx, err)
	}

	e.log.Info("Sending PDF content to Gemini for analysis.", "sizeBytes", len(pdf))
	resp, err := e.model.GenerateContent(ctx,
		genai.Blob{MIMEType: "application/pdf", Data: pdf},
		genai.Text(gcp.ExtractorUserPrompt),
	)
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			reason := blockReason(blocked.PromptFeedback, blocked.Candidate)
			e.log.Warn("Gemini response was blocked", "reason", reason)
			return failure("API response empty or blocked. Reason: " + reason)
		}
		if ctx.Err() != nil {
			return interrupted(ctx, err)
		}
		e.log.Error("Call to Vertex AI for extraction failed", "error", err)
		return failure(fmt.Sprintf("An unexpected error occurred: %v", err))
	}

	text := responseText(resp)
	if text == "" {
		var feedback *genai.PromptFeedback
		var candidate *genai.Candidate
		if resp != nil {
			feedback = resp.PromptFeedback
			if len(resp.Candidates) > 0 {
				candidate = resp.Candidates[0]
			}
		}
		reason := blockReason(feedback, candidate)
		e.log.Warn("Gemini response was empty or blocked", "reason", reason)
		return failure("API response empty or blocked. Reason: " + reason)
	}

	extract, err := decodeExtract(text)
	if err != nil {
		e.log.Error("Failed to parse JSON response", "error", err, "responseBody", text)
		return ExtractionResult{
			Error:       fmt.Sprintf("Failed to parse JSON response: %v", err),
			RawResponse: text,
		}
	}
	e.log.Info("Received structured response from Gemini.")
	return ExtractionResult{Data: extract}
}

func failure(msg string) ExtractionResult {
	return ExtractionResult{Error: msg}
}

func interrupted(ctx context.Context, cause error) ExtractionResult {
	err := ctx.Err()
	if err == nil {
		err = fmt.Errorf("%w: %v", context.DeadlineExceeded, cause)
	}
	return ExtractionResult{Error: fmt.Sprintf("extraction interrupted: %v", err), Interrupted: err}
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	// Clean potential markdown fences just in case
	cleanJSON := strings.TrimSpace(sb.String())
	cleanJSON = strings.TrimPrefix(cleanJSON, "```json")
	cleanJSON = strings.TrimPrefix(cleanJSON, "```")
	cleanJSON = strings.TrimSuffix(cleanJSON, "```")
	return strings.TrimSpace(cleanJSON)
}

func blockReason(feedback *genai.PromptFeedback, candidate *genai.Candidate) string {
	if feedback != nil && feedback.BlockReason != genai.BlockedReasonUnspecified {
		return feedback.BlockReason.String()
	}
	if candidate != nil && candidate.FinishReason != genai.FinishReasonUnspecified && candidate.FinishReason != genai.FinishReasonStop {
		return candidate.FinishReason.String()
	}
	return "Unknown"
}

// decodeExtract parses the model text as a single JSON object of the
// borderô schema. Type mismatches and trailing data are errors; absent fields
// stay nil.
func decodeExtract(text string) (*models.BorderoExtract, error) {
	if !strings.HasPrefix(text, "{") {
		return nil, errors.New("response is not a JSON object")
	}
	dec := json.NewDecoder(strings.NewReader(text))
	var extract models.BorderoExtract
	if err := dec.Decode(&extract); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}
	return &extract, nil
}

// pageCount validates the PDF structure with pdfcpu and returns its page count.
func pageCount(pdf []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(bytes.NewReader(pdf), conf)
}
