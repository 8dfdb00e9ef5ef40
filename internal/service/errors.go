package service

import "net/http"

// Error is a service failure that maps to an HTTP status.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string   { return e.Message }
func (e *Error) HTTPStatus() int { return e.Status }

var (
	ErrConversationNotFound = &Error{Status: http.StatusNotFound, Message: "conversation not found"}
	ErrProductUnavailable   = &Error{Status: http.StatusConflict, Message: "product unavailable"}
	ErrEmptyMessage         = &Error{Status: http.StatusBadRequest, Message: "message is empty"}
)
