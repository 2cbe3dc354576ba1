package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the outcome recorded for a document in the summary store.
type Status string

const (
	StatusSuccess         Status = "Sucesso"
	StatusAnalysisError   Status = "Erro Analise"
	StatusUnexpectedError Status = "Erro Inesperado"
)

// IDColumn is the primary key of the summary store and the foreign key of both
// detail stores.
const IDColumn = "id_jogo_cbf"

// SummaryHeaders is the fixed column order of jogos_resumo.csv.
var SummaryHeaders = []string{
	IDColumn, "data_jogo", "time_mandante", "time_visitante", "estadio", "competicao",
	"publico_pagante", "publico_nao_pagante", "publico_total",
	"receita_bruta_total", "despesa_total", "resultado_liquido",
	"caminho_pdf_local", "data_processamento", "status", "log_erro",
}

// Detail header lists are versioned explicitly instead of being derived from
// the first line item of a batch, so every batch lines up with the file header.
var (
	RevenueHeaders = []string{IDColumn, "source", "quantity", "price", "amount"}
	ExpenseHeaders = []string{IDColumn, "category", "amount"}
)

// SummaryRecord is one row of jogos_resumo.csv.
type SummaryRecord struct {
	ID                string
	MatchDate         *string
	HomeTeam          *string
	AwayTeam          *string
	Stadium           *string
	Competition       *string
	PaidAttendance    *int64
	NonPaidAttendance *int64
	TotalAttendance   *int64
	GrossRevenue      decimal.NullDecimal
	TotalExpenses     decimal.NullDecimal
	NetResult         decimal.NullDecimal
	PDFPath           string
	ProcessedOn       time.Time
	Status            Status
	ErrorLog          string
}

func (r SummaryRecord) ToRow() map[string]string {
	return map[string]string{
		IDColumn:              r.ID,
		"data_jogo":           str(r.MatchDate),
		"time_mandante":       str(r.HomeTeam),
		"time_visitante":      str(r.AwayTeam),
		"estadio":             str(r.Stadium),
		"competicao":          str(r.Competition),
		"publico_pagante":     integer(r.PaidAttendance),
		"publico_nao_pagante": integer(r.NonPaidAttendance),
		"publico_total":       integer(r.TotalAttendance),
		"receita_bruta_total": money(r.GrossRevenue),
		"despesa_total":       money(r.TotalExpenses),
		"resultado_liquido":   money(r.NetResult),
		"caminho_pdf_local":   r.PDFPath,
		"data_processamento":  r.ProcessedOn.Format(time.DateOnly),
		"status":              string(r.Status),
		"log_erro":            r.ErrorLog,
	}
}

// RevenueRecord is one row of receitas_detalhe.csv.
type RevenueRecord struct {
	ID string
	RevenueDetail
}

func (r RevenueRecord) ToRow() map[string]string {
	return map[string]string{
		IDColumn:   r.ID,
		"source":   str(r.Source),
		"quantity": integer(r.Quantity),
		"price":    money(r.Price),
		"amount":   money(r.Amount),
	}
}

// ExpenseRecord is one row of despesas_detalhe.csv.
type ExpenseRecord struct {
	ID string
	ExpenseDetail
}

func (r ExpenseRecord) ToRow() map[string]string {
	return map[string]string{
		IDColumn:   r.ID,
		"category": str(r.Category),
		"amount":   money(r.Amount),
	}
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func integer(i *int64) string {
	if i == nil {
		return ""
	}
	return strconv.FormatInt(*i, 10)
}

func money(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(2)
}
