package app

import (
	"fmt"
	"net/http"
)

// DomainError is an expected failure that maps straight to an HTTP response.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// messageNotFound hides messages outside the request's tenant or in channels
// taken off the site. It matches a missing row so neither case is observable.
func messageNotFound() *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", "Message not found", nil)
}

func channelNotFound(channelID string) *DomainError {
	return domainError(http.StatusNotFound, "CHANNEL_NOT_FOUND", "Channel not found", map[string]any{"channelId": channelID})
}
