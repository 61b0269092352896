package timetracking

type Summary struct {
	TotalSessions        int64    `json:"totalSessions"`
	TotalTimeSeconds     int64    `json:"totalTimeSeconds"`
	TotalTimeFormatted   string   `json:"totalTimeFormatted"`
	AverageTimeSeconds   int64    `json:"averageTimeSeconds"`
	AverageTimeFormatted string   `json:"averageTimeFormatted"`
	HasActiveSession     bool     `json:"hasActiveSession"`
	ActiveSession        *Session `json:"activeSession,omitempty"`
}

type SessionsResponse struct {
	Sessions []*Session `json:"sessions"`
}

type CurrentResponse struct {
	Session *Session `json:"session"`
}
