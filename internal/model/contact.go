package model

// ContactSubmission is a contact form submission built from an untrusted
// request body. It only lives for the duration of the request.
type ContactSubmission struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// StoredMessage is a persisted contact submission.
type StoredMessage struct {
	ID        int64  `json:"id"` // Unix milliseconds at creation, bumped on collision
	Name      string `json:"name"`
	Email     string `json:"email"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Read      bool   `json:"read"`
}

// NewStoredMessage wraps a sanitized submission as an unread record.
func NewStoredMessage(id int64, sub ContactSubmission) *StoredMessage {
	return &StoredMessage{
		ID:        id,
		Name:      sub.Name,
		Email:     sub.Email,
		Message:   sub.Message,
		Timestamp: sub.Timestamp,
	}
}
