package models

// Stats is the dashboard projection over the current set of reports
type Stats struct {
	Total      int              `json:"total"`
	Pending    int              `json:"pending"`
	Resolved   int              `json:"resolved"`
	ByCategory map[Category]int `json:"byCategory"`
}

// ReportView is what the API returns for a single report
type ReportView struct {
	Report
	ConfidenceIndex float64 `json:"confidenceIndex"`
	Confirmed       bool    `json:"confirmed"`
}

// HealthCheckResponse returns the health check response duh
type HealthCheckResponse struct {
	Alive bool `json:"alive"`
}
