package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	resp  *genai.GenerateContentResponse
	err   error
	panic bool
	calls int
	parts []genai.Part
}

func (f *fakeGenerator) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.parts = parts
	if f.panic {
		panic("client exploded")
	}
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(text)}},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

const validExtractJSON = `{
  "match_details": {"home_team": "Palmeiras", "away_team": "Santos", "match_date": "2025-04-12", "stadium": "Allianz Parque", "competition": "Brasileirão Série A"},
  "financial_data": {
    "gross_revenue": 2150300.75, "total_expenses": 650000.5, "net_result": 1500300.25,
    "revenue_details": [{"source": "Inteira", "quantity": 1000, "price": 150, "amount": 150000}],
    "expense_details": [{"category": "Arbitragem", "amount": 45000.1}]
  },
  "audience_statistics": {"paid_attendance": 31250, "non_paid_attendance": 1200, "total_attendance": 32450}
}`

func newTestExtractor(gen ContentGenerator) *Extractor {
	return NewExtractor(gen, ExtractorConfig{SkipPreflight: true}, nil)
}

func TestExtractSuccess(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse("```json\n" + validExtractJSON + "\n```")}

	res := newTestExtractor(gen).Extract(context.Background(), []byte("%PDF-1.4"))

	require.False(t, res.Failed(), res.Error)
	assert.Empty(t, res.Error)
	assert.Equal(t, "Palmeiras", *res.Data.MatchDetails.HomeTeam)
	assert.Equal(t, "2150300.75", res.Data.FinancialData.GrossRevenue.Decimal.StringFixed(2))
	assert.Len(t, res.Data.Revenue(), 1)
	assert.Len(t, res.Data.Expenses(), 1)
	assert.Equal(t, int64(32450), *res.Data.AudienceStatistics.TotalAttendance)

	require.Len(t, gen.parts, 2)
	blob, ok := gen.parts[0].(genai.Blob)
	require.True(t, ok)
	assert.Equal(t, "application/pdf", blob.MIMEType)
	assert.Equal(t, []byte("%PDF-1.4"), blob.Data)
}

func TestExtractNullFieldsStayNil(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(`{"match_details": {"home_team": null}, "financial_data": null}`)}

	res := newTestExtractor(gen).Extract(context.Background(), []byte("pdf"))

	require.False(t, res.Failed())
	assert.Nil(t, res.Data.MatchDetails.HomeTeam)
	assert.Nil(t, res.Data.FinancialData)
	assert.Nil(t, res.Data.AudienceStatistics)
	assert.Empty(t, res.Data.Revenue())
}

func TestExtractUnparseableResponse(t *testing.T) {
	cases := map[string]string{
		"not json":         "Sorry, I cannot read this document.",
		"truncated":        `{"match_details": {"home_team": "Pal`,
		"wrong type":       `{"audience_statistics": {"paid_attendance": "many"}}`,
		"trailing data":    `{"match_details": null} {"again": true}`,
		"trailing braces":  validExtractJSON + "}}]",
		"trailing bracket": `{"match_details": null}]`,
		"array":            `[1, 2, 3]`,
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			gen := &fakeGenerator{resp: textResponse(text)}

			res := newTestExtractor(gen).Extract(context.Background(), []byte("pdf"))

			require.True(t, res.Failed())
			assert.Nil(t, res.Data)
			assert.Contains(t, res.Error, "Failed to parse JSON response")
			assert.Equal(t, text, res.RawResponse)
		})
	}
}

func TestExtractEmptyResponse(t *testing.T) {
	for name, resp := range map[string]*genai.GenerateContentResponse{
		"nil response":  nil,
		"no candidates": {},
		"blank text":    textResponse("   "),
	} {
		t.Run(name, func(t *testing.T) {
			res := newTestExtractor(&fakeGenerator{resp: resp}).Extract(context.Background(), []byte("pdf"))

			require.True(t, res.Failed())
			assert.Equal(t, "API response empty or blocked. Reason: Unknown", res.Error)
		})
	}
}

func TestExtractBlockedResponse(t *testing.T) {
	gen := &fakeGenerator{err: &genai.BlockedError{
		PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockedReasonSafety},
	}}

	res := newTestExtractor(gen).Extract(context.Background(), []byte("pdf"))

	require.True(t, res.Failed())
	assert.Contains(t, res.Error, "API response empty or blocked. Reason: ")
	assert.Contains(t, res.Error, genai.BlockedReasonSafety.String())
}

func TestExtractFinishReasonWithoutText(t *testing.T) {
	gen := &fakeGenerator{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
	}}

	res := newTestExtractor(gen).Extract(context.Background(), []byte("pdf"))

	require.True(t, res.Failed())
	assert.Equal(t, "API response empty or blocked. Reason: "+genai.FinishReasonSafety.String(), res.Error)
}

func TestExtractServiceError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("rpc error: code = Unavailable")}

	res := newTestExtractor(gen).Extract(context.Background(), []byte("pdf"))

	require.True(t, res.Failed())
	assert.Equal(t, "An unexpected error occurred: rpc error: code = Unavailable", res.Error)
}

func TestExtractRecoversFromPanic(t *testing.T) {
	gen := &fakeGenerator{panic: true}

	res := newTestExtractor(gen).Extract(context.Background(), []byte("pdf"))

	require.True(t, res.Failed())
	assert.Contains(t, res.Error, "client exploded")
}

func TestExtractEmptyInputMakesNoCall(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(validExtractJSON)}

	res := newTestExtractor(gen).Extract(context.Background(), nil)

	assert.Equal(t, "PDF content bytes are empty.", res.Error)
	assert.Zero(t, gen.calls)
}

func TestExtractPreflightRejectsNonPDF(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(validExtractJSON)}
	e := NewExtractor(gen, ExtractorConfig{}, nil)

	res := e.Extract(context.Background(), []byte("<html>404 Not Found</html>"))

	require.True(t, res.Failed())
	assert.Contains(t, res.Error, "Invalid PDF document")
	assert.Zero(t, gen.calls)
}

func TestExtractCancelledContext(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(validExtractJSON)}
	e := NewExtractor(gen, ExtractorConfig{SkipPreflight: true, RequestsPerSecond: 0.001}, nil)
	// The first token is available immediately; drain it so Wait has to block.
	e.limiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := e.Extract(ctx, []byte("pdf"))

	require.True(t, res.Failed())
	assert.ErrorIs(t, res.Interrupted, context.Canceled)
	assert.Zero(t, gen.calls)
}

func TestExtractLimiterPastDeadline(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(validExtractJSON)}
	e := NewExtractor(gen, ExtractorConfig{SkipPreflight: true, RequestsPerSecond: 0.001}, nil)
	e.limiter.Allow()

	// The next token is ~1000s away, so Wait gives up before the deadline passes.
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	res := e.Extract(ctx, []byte("pdf"))

	require.True(t, res.Failed())
	assert.ErrorIs(t, res.Interrupted, context.DeadlineExceeded)
	assert.Zero(t, gen.calls)
}

// cancellingGenerator cancels the run while the model call is in flight.
type cancellingGenerator struct {
	cancel context.CancelFunc
	calls  int
}

func (g *cancellingGenerator) GenerateContent(ctx context.Context, _ ...genai.Part) (*genai.GenerateContentResponse, error) {
	g.calls++
	g.cancel()
	return nil, ctx.Err()
}

func TestExtractCancelledDuringCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := &cancellingGenerator{cancel: cancel}

	res := newTestExtractor(gen).Extract(ctx, []byte("pdf"))

	require.True(t, res.Failed())
	assert.ErrorIs(t, res.Interrupted, context.Canceled)
	assert.Equal(t, 1, gen.calls)
}

func TestExtractServiceErrorIsNotInterrupted(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("rpc error: code = Internal")}

	res := newTestExtractor(gen).Extract(context.Background(), []byte("pdf"))

	assert.NoError(t, res.Interrupted)
	assert.Equal(t, "An unexpected error occurred: rpc error: code = Internal", res.Error)
}
