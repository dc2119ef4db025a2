package source

import (
	"fmt"
	"net/http"
	"os"
	"unicode/utf8"

	"github.com/xiaohuirong/txt2sub/internal/model"
)

// Kind selects the per-input read limits and error stage.
type Kind int

const (
	KindSubscription Kind = iota
	KindTemplate
)

func (k Kind) stage() string {
	switch k {
	case KindSubscription:
		return "read_source"
	case KindTemplate:
		return "read_template"
	default:
		// Unknown kind is a programmer error; still return something stable.
		return "read"
	}
}

func (k Kind) maxBytes() int64 {
	switch k {
	case KindSubscription:
		return 5 * 1024 * 1024
	case KindTemplate:
		return 2 * 1024 * 1024
	default:
		return 1 * 1024 * 1024
	}
}

type SourceError struct {
	Status   int
	AppError model.AppError
	Cause    error
}

func (e *SourceError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *SourceError) Unwrap() error { return e.Cause }

// ReadFile loads one local input file with a size cap and a UTF-8 check.
// The core pipeline receives text, never file handles.
func ReadFile(kind Kind, path string) (string, error) {
	stage := kind.stage()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &SourceError{
				Status: http.StatusNotFound,
				AppError: model.AppError{
					Code:    "SOURCE_NOT_FOUND",
					Message: "输入文件不存在",
					Stage:   stage,
					Snippet: path,
				},
				Cause: err,
			}
		}
		return "", readFailed(stage, path, err)
	}
	if info.Size() > kind.maxBytes() {
		return "", &SourceError{
			Status: http.StatusUnprocessableEntity,
			AppError: model.AppError{
				Code:    "TOO_LARGE",
				Message: fmt.Sprintf("输入文件过大（>%d bytes）", kind.maxBytes()),
				Stage:   stage,
				Snippet: path,
			},
		}
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return "", readFailed(stage, path, err)
	}
	if !utf8.Valid(body) {
		return "", &SourceError{
			Status: http.StatusUnprocessableEntity,
			AppError: model.AppError{
				Code:    "SOURCE_INVALID_UTF8",
				Message: "输入文件不是合法 UTF-8 文本",
				Stage:   stage,
				Snippet: path,
			},
		}
	}
	return string(body), nil
}

func readFailed(stage, path string, err error) error {
	return &SourceError{
		Status: http.StatusInternalServerError,
		AppError: model.AppError{
			Code:    "SOURCE_READ_ERROR",
			Message: "读取输入文件失败",
			Stage:   stage,
			Snippet: path,
		},
		Cause: err,
	}
}
