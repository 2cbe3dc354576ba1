package models

// These structs define the JSON payloads accepted by the HTTP and CloudEvent
// entry points and the hand-off sent to the normalization workflow.

// Operation selects which stages of the pipeline a run executes.
type Operation string

const (
	OperationDownload Operation = "download"
	OperationProcess  Operation = "process"
	OperationFull     Operation = "full"
)

// IngestRequest is the input of the ingest functions. Zero values fall back to
// the configured defaults.
type IngestRequest struct {
	Operation    Operation `json:"operation"`
	Year         int       `json:"year,omitempty"`
	Competitions []string  `json:"competitions,omitempty"`
}

// IngestResponse is the output of the ingest functions.
type IngestResponse struct {
	Status     string `json:"status"`
	RunID      string `json:"runId"`
	Downloaded int    `json:"downloaded"`
	Recorded   int    `json:"recorded"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
}

// NormalizeWorkflowArgs is the argument of the downstream normalization
// workflow. The CSV fields are gs:// URIs; a detail URI is empty when that
// store has never been written.
type NormalizeWorkflowArgs struct {
	RunID      string `json:"runId"`
	SummaryCSV string `json:"summaryCsv"`
	RevenueCSV string `json:"revenueCsv,omitempty"`
	ExpenseCSV string `json:"expenseCsv,omitempty"`
	Recorded   int    `json:"recorded"`
	Succeeded  int    `json:"succeeded"`
}
