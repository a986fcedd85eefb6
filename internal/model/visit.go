package model

// VisitEvent is an anonymous page-visit ping. It is relayed as a
// notification and never persisted.
type VisitEvent struct {
	UserAgent string `json:"userAgent"`
	Referrer  string `json:"referrer"`
	Timestamp string `json:"timestamp"`
}
