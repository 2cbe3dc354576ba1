package models

import "github.com/shopspring/decimal"

// BorderoExtract is the structured answer of the extraction model for one
// borderô. Every leaf is nullable: a field the model could not find stays nil
// and is written as an empty CSV cell.
type BorderoExtract struct {
	MatchDetails       *MatchDetails       `json:"match_details"`
	FinancialData      *FinancialData      `json:"financial_data"`
	AudienceStatistics *AudienceStatistics `json:"audience_statistics"`
}

type MatchDetails struct {
	HomeTeam    *string `json:"home_team"`
	AwayTeam    *string `json:"away_team"`
	MatchDate   *string `json:"match_date"`
	Stadium     *string `json:"stadium"`
	Competition *string `json:"competition"`
}

type FinancialData struct {
	GrossRevenue   decimal.NullDecimal `json:"gross_revenue"`
	TotalExpenses  decimal.NullDecimal `json:"total_expenses"`
	NetResult      decimal.NullDecimal `json:"net_result"`
	RevenueDetails []RevenueDetail     `json:"revenue_details"`
	ExpenseDetails []ExpenseDetail     `json:"expense_details"`
}

type RevenueDetail struct {
	Source   *string             `json:"source"`
	Quantity *int64              `json:"quantity"`
	Price    decimal.NullDecimal `json:"price"`
	Amount   decimal.NullDecimal `json:"amount"`
}

type ExpenseDetail struct {
	Category *string             `json:"category"`
	Amount   decimal.NullDecimal `json:"amount"`
}

type AudienceStatistics struct {
	PaidAttendance    *int64 `json:"paid_attendance"`
	NonPaidAttendance *int64 `json:"non_paid_attendance"`
	TotalAttendance   *int64 `json:"total_attendance"`
}

// Revenue returns the revenue line items, or nil when the financial section is missing.
func (b *BorderoExtract) Revenue() []RevenueDetail {
	if b == nil || b.FinancialData == nil {
		return nil
	}
	return b.FinancialData.RevenueDetails
}

// Expenses returns the expense line items, or nil when the financial section is missing.
func (b *BorderoExtract) Expenses() []ExpenseDetail {
	if b == nil || b.FinancialData == nil {
		return nil
	}
	return b.FinancialData.ExpenseDetails
}
