package service

import "errors"

var (
	// ErrTransport marks a notification that could not be sent.
	ErrTransport = errors.New("service: notification failed")
	// ErrStorage marks a message store failure.
	ErrStorage = errors.New("service: storage failed")
	// ErrStoreDisabled is returned by store operations when STORE_BACKEND=none.
	ErrStoreDisabled = errors.New("service: message store disabled")
	// ErrNotFound is returned when a message id is unknown.
	ErrNotFound = errors.New("service: message not found")
)
