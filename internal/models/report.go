package models

// ReportSummary aggregates display statuses for the reports page.
type ReportSummary struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	Cancelled      int     `json:"cancelled"`
	Absent         int     `json:"absent"`
	Scheduled      int     `json:"scheduled"`
	Started        int     `json:"started"`
	CompletionRate float64 `json:"completionRate"`
}

// DashboardStats backs the dashboard cards.
type DashboardStats struct {
	TotalSessions  int `json:"totalSessions"`
	Completed      int `json:"completed"`
	Scheduled      int `json:"scheduled"`
	HoursTrained   int `json:"hoursTrained"`
	ActiveTrainers int `json:"activeTrainers"`
}

// ExportFormat selects the report file type.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ReportExport is a rendered report ready to be downloaded.
type ReportExport struct {
	Filename    string
	ContentType string
	Body        []byte
}
