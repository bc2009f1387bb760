package models

import "time"

// StatsSummary holds the aggregate counters for a filtered materi subset.
// Active and Expired partition Total at evaluation time.
type StatsSummary struct {
	Total        int       `json:"total"`
	Active       int       `json:"active"`
	Expired      int       `json:"expired"`
	WithFeature  int       `json:"withFeature"`
	WithTitle    int       `json:"withTitle"`
	WithDocument int       `json:"withDocument"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

// MonthlyPoint is one month of a time series. Months with no data are
// emitted with a zero value, never omitted.
type MonthlyPoint struct {
	Month string `json:"month"`
	Value int    `json:"value"`
}

// MonthlyStats buckets each summary metric by calendar month of start_date
// for the current year. Every series always has twelve entries (Jan..Dec).
type MonthlyStats struct {
	Total        []MonthlyPoint `json:"total"`
	Active       []MonthlyPoint `json:"active"`
	Expired      []MonthlyPoint `json:"expired"`
	WithFeature  []MonthlyPoint `json:"withFeature"`
	WithTitle    []MonthlyPoint `json:"withTitle"`
	WithDocument []MonthlyPoint `json:"withDocument"`
}
