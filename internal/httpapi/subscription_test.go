package httpapi

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/xiaohuirong/txt2sub/internal/model"
)

const testToken = "4ac7acae-0461-4a60-9b0b-0043dbcd0fbb"

const testSource = `vless://uuid@1.2.3.4:443?security=reality&sni=example.com#Node1
trojan://secret@tr.com:443#Node2
`

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newTestMux(t *testing.T, sourceContent, templateContent string) *http.ServeMux {
	t.Helper()
	opt := Options{
		Token:      testToken,
		SourcePath: writeTempFile(t, "nodes.txt", sourceContent),
	}
	if templateContent != "" {
		opt.TemplatePath = writeTempFile(t, "template.yaml", templateContent)
	}
	return NewMux(opt)
}

func doGet(t *testing.T, h http.Handler, path, ua string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSubscription_ValidToken(t *testing.T) {
	mux := newTestMux(t, testSource, "")

	rec := doGet(t, mux, "/"+testToken, "v2rayN/6.23")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want=200; body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content-type=%q, want text/plain", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
		t.Fatalf("cache-control=%q, want=no-store", cc)
	}
	raw, err := base64.StdEncoding.DecodeString(rec.Body.String())
	if err != nil {
		t.Fatalf("body is not standard base64: %v", err)
	}
	if !strings.Contains(string(raw), "trojan://") {
		t.Fatalf("payload missing trojan link: %s", raw)
	}
}

func TestSubscription_WrongToken(t *testing.T) {
	mux := newTestMux(t, testSource, "")

	for _, path := range []string{"/wrong-token", "/" + testToken + "x", "/" + testToken[:len(testToken)-1]} {
		rec := doGet(t, mux, path, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("path=%q status=%d, want=404", path, rec.Code)
		}
	}
}

func TestIndexAndHealthz(t *testing.T) {
	mux := newTestMux(t, testSource, "")

	rec := doGet(t, mux, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("index status=%d, want=200", rec.Code)
	}
	if strings.Contains(rec.Body.String(), testToken) {
		t.Fatalf("index leaks the token")
	}

	rec = doGet(t, mux, "/healthz", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok\n" {
		t.Fatalf("healthz status=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestSubscription_UserAgentSniffing(t *testing.T) {
	cases := []struct {
		name      string
		path      string
		ua        string
		wantsYAML bool
	}{
		{"plain client", "/" + testToken, "v2rayN/6.23", false},
		{"no user agent", "/" + testToken, "", false},
		{"clash", "/" + testToken, "ClashX/1.95.1", true},
		{"mihomo", "/" + testToken, "mihomo/v1.18", true},
		{"stash", "/" + testToken, "Stash/2.5.0", true},
		{"target overrides ua", "/" + testToken + "?target=base64", "ClashX/1.95.1", false},
		{"target clash", "/" + testToken + "?target=clash", "curl/8.0", true},
		{"target plain", "/" + testToken + "?target=plain", "mihomo/v1.18", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mux := newTestMux(t, testSource, "")
			rec := doGet(t, mux, tc.path, tc.ua)
			if rec.Code != http.StatusOK {
				t.Fatalf("status=%d, want=200; body=%s", rec.Code, rec.Body.String())
			}
			gotYAML := strings.HasPrefix(rec.Header().Get("Content-Type"), "text/yaml")
			if gotYAML != tc.wantsYAML {
				t.Fatalf("yaml=%v, want=%v (content-type=%q)", gotYAML, tc.wantsYAML, rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestSubscription_TemplateMerge(t *testing.T) {
	tpl := strings.Join([]string{
		"mode: rule",
		"proxy-groups:",
		"  - name: PROXY",
		"    type: select",
		"    proxies:",
		"      - DIRECT",
	}, "\n")
	mux := newTestMux(t, testSource, tpl)

	rec := doGet(t, mux, "/"+testToken, "mihomo/v1.18")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want=200; body=%s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "mode: rule") {
		t.Fatalf("template content dropped:\n%s", body)
	}
	if !strings.Contains(body, "Node1") || !strings.Contains(body, "Node2") {
		t.Fatalf("generated nodes missing:\n%s", body)
	}
	if !strings.Contains(body, "DIRECT") {
		t.Fatalf("template group member dropped:\n%s", body)
	}
}

func TestSubscription_DecodeFailureHeader(t *testing.T) {
	mux := newTestMux(t, testSource+"tuic://badformat\n", "")

	rec := doGet(t, mux, "/"+testToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want=200", rec.Code)
	}
	if got := rec.Header().Get("X-Decode-Failures"); got != "1" {
		t.Fatalf("X-Decode-Failures=%q, want=%q", got, "1")
	}
}

func decodeAppError(t *testing.T, rec *httptest.ResponseRecorder) model.AppError {
	t.Helper()
	var resp model.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error body is not json: %v\n%s", err, rec.Body.String())
	}
	return resp.Error
}

func TestSubscription_MissingSourceFile(t *testing.T) {
	opt := Options{
		Token:      testToken,
		SourcePath: filepath.Join(t.TempDir(), "absent.txt"),
	}
	mux := NewMux(opt)

	rec := doGet(t, mux, "/"+testToken, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want=404", rec.Code)
	}
	ae := decodeAppError(t, rec)
	if ae.Code != "SOURCE_NOT_FOUND" {
		t.Fatalf("code=%q, want=%q", ae.Code, "SOURCE_NOT_FOUND")
	}
	if ae.Stage != "read_source" {
		t.Fatalf("stage=%q, want=%q", ae.Stage, "read_source")
	}
}

func TestSubscription_EmptyResult(t *testing.T) {
	mux := newTestMux(t, "# comments only\n", "")

	rec := doGet(t, mux, "/"+testToken, "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d, want=422", rec.Code)
	}
	ae := decodeAppError(t, rec)
	if ae.Code != "EMPTY_RESULT" {
		t.Fatalf("code=%q, want=%q", ae.Code, "EMPTY_RESULT")
	}
}

func TestSubscription_BrokenTemplate(t *testing.T) {
	mux := newTestMux(t, testSource, "proxies: [oops")

	rec := doGet(t, mux, "/"+testToken+"?target=clash", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d, want=422", rec.Code)
	}
	ae := decodeAppError(t, rec)
	if ae.Code != "TEMPLATE_PARSE_ERROR" {
		t.Fatalf("code=%q, want=%q", ae.Code, "TEMPLATE_PARSE_ERROR")
	}
}

func TestSubscription_InvalidUTF8Source(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.txt")
	if err := os.WriteFile(path, []byte{0xff, 0xfe, 0x01}, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	mux := NewMux(Options{Token: testToken, SourcePath: path})

	rec := doGet(t, mux, "/"+testToken, "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d, want=422", rec.Code)
	}
	ae := decodeAppError(t, rec)
	if ae.Code != "SOURCE_INVALID_UTF8" {
		t.Fatalf("code=%q, want=%q", ae.Code, "SOURCE_INVALID_UTF8")
	}
}
