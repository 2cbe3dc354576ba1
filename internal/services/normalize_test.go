package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/joaovfcarvalho/robo-bordero/internal/models"
)

func TestBuildSummaryMissingSections(t *testing.T) {
	now := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)
	extract := &models.BorderoExtract{MatchDetails: &models.MatchDetails{HomeTeam: ptr("Bahia")}}

	row := buildSummary("x_2025", "pdfs/x_2025.pdf", extract, now).ToRow()

	assert.Equal(t, "Bahia", row["time_mandante"])
	assert.Equal(t, "", row["time_visitante"])
	assert.Equal(t, "", row["publico_total"])
	assert.Equal(t, "", row["resultado_liquido"])
	assert.Equal(t, "Sucesso", row["status"])
	assert.Equal(t, "pdfs/x_2025.pdf", row["caminho_pdf_local"])
	assert.Len(t, row, len(models.SummaryHeaders))
}

func TestDetailRecordsCarryDocumentID(t *testing.T) {
	revenue, expenses := detailRecords("142100b_2025", successExtract())

	assert.Len(t, revenue, 2)
	assert.Len(t, expenses, 1)
	for _, r := range toRows(revenue) {
		assert.Equal(t, "142100b_2025", r[models.IDColumn])
	}
	assert.Equal(t, "Arbitragem", toRows(expenses)[0]["category"])
}

func TestDetailRecordsWithoutFinancialData(t *testing.T) {
	revenue, expenses := detailRecords("x", &models.BorderoExtract{})
	assert.Empty(t, revenue)
	assert.Empty(t, expenses)
	assert.Empty(t, toRows(revenue))
}

func TestProcessedSet(t *testing.T) {
	s := NewProcessedSet([]map[string]string{
		{models.IDColumn: "a"},
		{models.IDColumn: ""},
		{"other": "b"},
		{models.IDColumn: "a"},
	})
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("b"))
	assert.False(t, s.Has(""))

	s.Add("c")
	assert.True(t, s.Has("c"))
	assert.Equal(t, 2, s.Len())
}

func TestMirrorDocument(t *testing.T) {
	now := time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC)
	rec := failureSummary("4241b_2025", "pdfs/4241b_2025.pdf", models.StatusAnalysisError, "boom", now)

	doc := mirrorDocument("run-9", rec, now)

	assert.Equal(t, "4241b_2025", doc.DocumentID)
	assert.Equal(t, "Erro Analise", doc.Status)
	assert.Equal(t, "boom", doc.ErrorDetails)
	assert.Equal(t, "run-9", doc.RunID)
	assert.Equal(t, "boom", doc.Summary["log_erro"])
	assert.Equal(t, now, doc.UpdatedAt)
}
