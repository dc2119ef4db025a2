package sub

import (
	"fmt"
	"strings"

	"github.com/xiaohuirong/txt2sub/internal/model"
)

// ParseError is the typed failure of a single link decode. Parse never
// returns it directly; it converts each one into a Failure entry so that one
// bad line cannot abort the run.
type ParseError struct {
	AppError model.AppError
	Cause    error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Failure records one skipped input line. The run continues past it.
type Failure struct {
	Line    int    // 1-based line number in the source text
	Code    string
	Reason  string
	Snippet string
}

func newParseError(lineNo int, snippet string, code string, message string, hint string, cause error) error {
	return &ParseError{
		AppError: model.AppError{
			Code:    code,
			Message: message,
			Stage:   "parse_link",
			Line:    lineNo,
			Snippet: truncateSnippet(snippet, 200),
			Hint:    hint,
		},
		Cause: cause,
	}
}

func truncateSnippet(s string, max int) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	return s[:max]
}
