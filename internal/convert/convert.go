package convert

import (
	"fmt"
	"strings"

	"github.com/xiaohuirong/txt2sub/internal/clash"
	"github.com/xiaohuirong/txt2sub/internal/model"
	"github.com/xiaohuirong/txt2sub/internal/render"
	"github.com/xiaohuirong/txt2sub/internal/sub"
)

const (
	ContentTypePlain = "text/plain; charset=utf-8"
	ContentTypeYAML  = "text/yaml; charset=utf-8"
)

// Result is the selected output payload plus its content-type label.
type Result struct {
	Body        []byte
	ContentType string
}

type ConvertError struct {
	AppError model.AppError
	Cause    error
}

func (e *ConvertError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *ConvertError) Unwrap() error { return e.Cause }

// Convert runs the whole pipeline on already-loaded bytes: tokenize, decode,
// disambiguate names, then render either the Base64 payload or the merged
// template depending on structured.
//
// The returned Failure list is informational: decoding skips bad lines and
// continues. Only an empty node set (or a broken template) is an error.
func Convert(source string, template string, structured bool) (Result, []sub.Failure, error) {
	nodes, failures := sub.Parse(source)
	if len(nodes) == 0 {
		return Result{}, failures, &ConvertError{
			AppError: model.AppError{
				Code:    "EMPTY_RESULT",
				Message: "没有任何可用节点",
				Stage:   "convert",
				Hint:    fmt.Sprintf("decode failures: %d", len(failures)),
			},
		}
	}

	nodes = uniqueNames(nodes)

	if structured {
		body, err := clash.Merge(template, nodes)
		if err != nil {
			return Result{}, failures, err
		}
		return Result{Body: body, ContentType: ContentTypeYAML}, failures, nil
	}

	payload, err := render.Base64(nodes)
	if err != nil {
		return Result{}, failures, err
	}
	return Result{Body: []byte(payload), ContentType: ContentTypePlain}, failures, nil
}

// uniqueNames makes node names pairwise distinct while preserving input
// order. The first holder keeps its name; later collisions get -2, -3, …
// Decoders already synthesize a name for fragment-less links, so the
// server:port fallback here only guards against blank fragments.
func uniqueNames(in []model.Proxy) []model.Proxy {
	out := make([]model.Proxy, len(in))
	copy(out, in)

	used := make(map[string]struct{}, len(out))
	for i := range out {
		base := strings.TrimSpace(out[i].Name)
		if base == "" {
			base = fmt.Sprintf("%s:%d", out[i].Server, out[i].Port)
		}
		name := base
		if _, taken := used[name]; taken {
			for n := 2; ; n++ {
				try := fmt.Sprintf("%s-%d", base, n)
				if _, ok := used[try]; ok {
					continue
				}
				name = try
				break
			}
		}
		out[i].Name = name
		used[name] = struct{}{}
	}
	return out
}
