package llm

import (
	"context"
	"errors"
	"strings"
)

type FailureCategory string

const (
	FailureCategoryTimeout   FailureCategory = "timeout"
	FailureCategoryRateLimit FailureCategory = "rate_limit"
	FailureCategoryAuth      FailureCategory = "auth"
	FailureCategoryEmpty     FailureCategory = "empty"
	FailureCategoryError     FailureCategory = "error"
)

// FailureDetails turns a generation error into a loggable reason and a coarse
// category.
func FailureDetails(err error) (reason string, category FailureCategory) {
	if err == nil {
		return "", ""
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = "unknown failure"
	}
	lower := strings.ToLower(msg)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout: " + msg, FailureCategoryTimeout
	case errors.Is(err, ErrEmptyResponse):
		return msg, FailureCategoryEmpty
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		return msg, FailureCategoryRateLimit
	case strings.Contains(lower, "401") || strings.Contains(lower, "403") ||
		strings.Contains(lower, "unauthorized") || strings.Contains(lower, "api key"):
		return msg, FailureCategoryAuth
	default:
		return msg, FailureCategoryError
	}
}
