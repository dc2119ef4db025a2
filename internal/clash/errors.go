package clash

import (
	"fmt"

	"github.com/xiaohuirong/txt2sub/internal/model"
)

// TemplateError is fatal for the request: a template the user supplied but we
// cannot merge into must never be silently ignored.
type TemplateError struct {
	AppError model.AppError
	Cause    error
}

func (e *TemplateError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *TemplateError) Unwrap() error { return e.Cause }

func templateError(code, message, snippet string, cause error) error {
	return &TemplateError{
		AppError: model.AppError{
			Code:    code,
			Message: message,
			Stage:   "merge_template",
			Snippet: snippet,
		},
		Cause: cause,
	}
}
