package services

import (
	"time"

	"github.com/joaovfcarvalho/robo-bordero/internal/csvstore"
	"github.com/joaovfcarvalho/robo-bordero/internal/models"
)

// buildSummary flattens an extraction into a summary record. Any missing
// section or field stays nil and is written as an empty cell.
func buildSummary(id, pdfPath string, extract *models.BorderoExtract, processedOn time.Time) models.SummaryRecord {
	rec := models.SummaryRecord{
		ID:          id,
		PDFPath:     pdfPath,
		ProcessedOn: processedOn,
		Status:      models.StatusSuccess,
	}
	if extract == nil {
		return rec
	}
	if m := extract.MatchDetails; m != nil {
		rec.MatchDate = m.MatchDate
		rec.HomeTeam = m.HomeTeam
		rec.AwayTeam = m.AwayTeam
		rec.Stadium = m.Stadium
		rec.Competition = m.Competition
	}
	if a := extract.AudienceStatistics; a != nil {
		rec.PaidAttendance = a.PaidAttendance
		rec.NonPaidAttendance = a.NonPaidAttendance
		rec.TotalAttendance = a.TotalAttendance
	}
	if f := extract.FinancialData; f != nil {
		rec.GrossRevenue = f.GrossRevenue
		rec.TotalExpenses = f.TotalExpenses
		rec.NetResult = f.NetResult
	}
	return rec
}

// failureSummary is the summary record of a document whose extraction did
// not produce data. All extracted fields are left empty.
func failureSummary(id, pdfPath string, status models.Status, errText string, processedOn time.Time) models.SummaryRecord {
	return models.SummaryRecord{
		ID:          id,
		PDFPath:     pdfPath,
		ProcessedOn: processedOn,
		Status:      status,
		ErrorLog:    errText,
	}
}

// detailRecords attaches the document identifier to every line item.
func detailRecords(id string, extract *models.BorderoExtract) ([]models.RevenueRecord, []models.ExpenseRecord) {
	var revenue []models.RevenueRecord
	for _, item := range extract.Revenue() {
		revenue = append(revenue, models.RevenueRecord{ID: id, RevenueDetail: item})
	}
	var expenses []models.ExpenseRecord
	for _, item := range extract.Expenses() {
		expenses = append(expenses, models.ExpenseRecord{ID: id, ExpenseDetail: item})
	}
	return revenue, expenses
}

type rowConverter interface {
	ToRow() map[string]string
}

func toRows[T rowConverter](items []T) []csvstore.Row {
	rows := make([]csvstore.Row, 0, len(items))
	for _, item := range items {
		rows = append(rows, item.ToRow())
	}
	return rows
}
