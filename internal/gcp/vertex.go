package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

const DefaultExtractorModel = "gemini-2.0-flash"

// --- Extractor Model Prompts ---
const ExtractorSystemPrompt = "You are a data extraction tool for Brazilian football federation (CBF) match reports (borderôs). You read the financial and attendance report of a single match and return its figures as JSON. Never invent values: when a value is not present in the document, return null."
const ExtractorUserPrompt = `Extract the following information from the PDF as a JSON object:
1. Match details: home_team (str), away_team (str), match_date (str, YYYY-MM-DD), stadium (str), competition (str).
2. Financial data: gross_revenue (float), total_expenses (float), net_result (float), revenue_details (list of objects with 'source' (str), 'quantity' (int), 'price' (float) and 'amount' (float) keys), expense_details (list of objects with 'category' (str) and 'amount' (float) keys).
3. Audience statistics: paid_attendance (int), non_paid_attendance (int), total_attendance (int).
Ensure all monetary values are floats and attendances/quantities are integers. If a value (like quantity or price) is not applicable or found, use null.`

// BorderoSchema is the response schema handed to the model. It mirrors
// models.BorderoExtract.
func BorderoSchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc, Nullable: true}
	}
	num := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeNumber, Description: desc, Nullable: true}
	}
	integer := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeInteger, Description: desc, Nullable: true}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"match_details": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"home_team":   str("Home team name"),
					"away_team":   str("Away team name"),
					"match_date":  str("Match date, YYYY-MM-DD"),
					"stadium":     str("Stadium name"),
					"competition": str("Competition name"),
				},
				Required: []string{"home_team", "away_team", "match_date", "stadium", "competition"},
			},
			"financial_data": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"gross_revenue":  num("Gross revenue (receita bruta)"),
					"total_expenses": num("Total expenses (despesas)"),
					"net_result":     num("Net result (resultado líquido)"),
					"revenue_details": {
						Type: genai.TypeArray,
						Items: &genai.Schema{
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"source":   str("Ticket type or revenue source"),
								"quantity": integer("Tickets sold"),
								"price":    num("Unit price"),
								"amount":   num("Line total"),
							},
							Required: []string{"source", "amount"},
						},
					},
					"expense_details": {
						Type: genai.TypeArray,
						Items: &genai.Schema{
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"category": str("Expense category"),
								"amount":   num("Line total"),
							},
							Required: []string{"category", "amount"},
						},
					},
				},
				Required: []string{"gross_revenue", "total_expenses", "net_result", "revenue_details", "expense_details"},
			},
			"audience_statistics": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"paid_attendance":     integer("Paying public"),
					"non_paid_attendance": integer("Non-paying public"),
					"total_attendance":    integer("Total public"),
				},
				Required: []string{"paid_attendance", "non_paid_attendance", "total_attendance"},
			},
		},
		Required: []string{"match_details", "financial_data", "audience_statistics"},
	}
}

// VertexClient holds the pre-configured generative model used for extraction.
type VertexClient struct {
	ExtractorModel *genai.GenerativeModel
	baseClient     *genai.Client
}

// NewVertexClient creates a client whose extractor model answers with JSON
// constrained to BorderoSchema.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = DefaultExtractorModel
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	extractorModel := baseClient.GenerativeModel(modelName)
	extractorModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ExtractorSystemPrompt)},
	}
	extractorModel.GenerationConfig = genai.GenerationConfig{
		// Force JSON output constrained to the borderô schema.
		ResponseMIMEType: "application/json",
		ResponseSchema:   BorderoSchema(),
		Temperature:      genai.Ptr[float32](0.2),
	}
	extractorModel.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	return &VertexClient{
		ExtractorModel: extractorModel,
		baseClient:     baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
