package domain

import "time"

// Exchange is one persisted question/answer round, kept as an audit trail of
// what the assistant said and how confident it was.
type Exchange struct {
	ID         string     `json:"id"`
	Endpoint   string     `json:"endpoint"`
	Question   string     `json:"question"`
	Answer     string     `json:"answer"`
	Mode       SearchMode `json:"search_mode"`
	Confidence float64    `json:"confidence"`
	Sources    int        `json:"source_count"`
	TookMS     int64      `json:"took_ms"`
	CreatedAt  time.Time  `json:"created_at"`
}
