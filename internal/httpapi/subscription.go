package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/xiaohuirong/txt2sub/internal/convert"
	"github.com/xiaohuirong/txt2sub/internal/logger"
	"github.com/xiaohuirong/txt2sub/internal/source"
)

type subHandler struct {
	opt Options
}

func (h subHandler) handleSub(w http.ResponseWriter, r *http.Request) {
	// Wrong token gets the same 404 as any unknown path.
	got := r.PathValue("token")
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.opt.Token)) != 1 {
		http.NotFound(w, r)
		return
	}

	structured := wantsClashConfig(r)

	srcText, err := source.ReadFile(source.KindSubscription, h.opt.SourcePath)
	if err != nil {
		writeErrorFromErr(w, err)
		return
	}

	templateText := ""
	if structured && h.opt.TemplatePath != "" {
		templateText, err = source.ReadFile(source.KindTemplate, h.opt.TemplatePath)
		if err != nil {
			writeErrorFromErr(w, err)
			return
		}
	}

	res, failures, err := convert.Convert(srcText, templateText, structured)
	for _, f := range failures {
		logger.Warningf("skip line %d: %s (%s) %q", f.Line, f.Reason, f.Code, f.Snippet)
	}
	if err != nil {
		writeErrorFromErr(w, err)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	if len(failures) > 0 {
		w.Header().Set("X-Decode-Failures", strconv.Itoa(len(failures)))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Body)
}

// clashAgents are User-Agent substrings that identify Clash-family clients.
// They get the merged configuration document instead of the Base64 payload.
var clashAgents = []string{"clash", "mihomo", "stash"}

// wantsClashConfig decides the output flavor. An explicit target query
// parameter always wins; otherwise the User-Agent is sniffed.
func wantsClashConfig(r *http.Request) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("target"))) {
	case "clash":
		return true
	case "base64", "plain":
		return false
	}
	ua := strings.ToLower(r.Header.Get("User-Agent"))
	for _, agent := range clashAgents {
		if strings.Contains(ua, agent) {
			return true
		}
	}
	return false
}
