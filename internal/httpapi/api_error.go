package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/xiaohuirong/txt2sub/internal/clash"
	"github.com/xiaohuirong/txt2sub/internal/convert"
	"github.com/xiaohuirong/txt2sub/internal/model"
	"github.com/xiaohuirong/txt2sub/internal/render"
	"github.com/xiaohuirong/txt2sub/internal/source"
	"github.com/xiaohuirong/txt2sub/internal/sub"
)

// APIError is used by the HTTP layer itself for request validation and a few
// HTTP-specific failures.
type APIError struct {
	Status   int
	AppError model.AppError
	Cause    error
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *APIError) Unwrap() error { return e.Cause }

func writeErrorFromErr(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var ae *APIError
	if errors.As(err, &ae) {
		WriteError(w, ae.Status, ae.AppError)
		return
	}

	var se *source.SourceError
	if errors.As(err, &se) {
		WriteError(w, se.Status, se.AppError)
		return
	}

	// Content errors (user-supplied links or template) => 422.
	var pe *sub.ParseError
	if errors.As(err, &pe) {
		WriteError(w, http.StatusUnprocessableEntity, pe.AppError)
		return
	}

	var te *clash.TemplateError
	if errors.As(err, &te) {
		WriteError(w, http.StatusUnprocessableEntity, te.AppError)
		return
	}

	var ce *convert.ConvertError
	if errors.As(err, &ce) {
		WriteError(w, http.StatusUnprocessableEntity, ce.AppError)
		return
	}

	var re *render.RenderError
	if errors.As(err, &re) {
		WriteError(w, http.StatusUnprocessableEntity, re.AppError)
		return
	}

	// Fallback: internal bug.
	WriteError(w, http.StatusInternalServerError, model.AppError{
		Code:    "INTERNAL_ERROR",
		Message: "服务端内部错误",
		Stage:   "internal",
		Hint:    err.Error(),
	})
}
