package render

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/xiaohuirong/txt2sub/internal/model"
)

type RenderError struct {
	AppError model.AppError
	Cause    error
}

func (e *RenderError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *RenderError) Unwrap() error { return e.Cause }

// Base64 serializes every node back into its canonical link, joins the list
// with newlines (preserving input order) and Base64-encodes the blob. Output
// is byte-deterministic for a given node list.
func Base64(nodes []model.Proxy) (string, error) {
	lines := make([]string, 0, len(nodes))
	for _, p := range nodes {
		line, err := Link(p)
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}
	return base64.StdEncoding.EncodeToString([]byte(strings.Join(lines, "\n"))), nil
}

// Link emits the canonical link string for one node. It need not byte-match
// the original input, only decode back to the same semantic fields.
func Link(p model.Proxy) (string, error) {
	switch p.Protocol {
	case model.ProtocolVLESS:
		return vlessLink(p)
	case model.ProtocolVMess:
		return vmessLink(p)
	case model.ProtocolHysteria2:
		return hysteria2Link(p)
	case model.ProtocolTrojan:
		return trojanLink(p)
	case model.ProtocolShadowsocks:
		return ssLink(p)
	case model.ProtocolTUIC:
		return tuicLink(p)
	default:
		return "", &RenderError{
			AppError: model.AppError{
				Code:    "RENDER_ERROR",
				Message: fmt.Sprintf("无法渲染的协议：%s", p.Protocol),
				Stage:   "render",
				Snippet: p.Name,
			},
		}
	}
}

func vlessLink(p model.Proxy) (string, error) {
	o := p.VLESS
	if o == nil {
		return "", missingPayload(p)
	}
	q := newQuery()
	q.add("security", o.Security)
	q.add("type", o.Network)
	q.add("flow", o.Flow)
	q.add("sni", o.SNI)
	q.add("fp", o.Fingerprint)
	if o.Security == "reality" {
		q.add("pbk", o.PublicKey)
		q.add("sid", o.ShortID)
	}
	switch o.Network {
	case "ws":
		q.add("path", o.WSPath)
		q.add("host", o.WSHost)
	case "grpc":
		q.add("serviceName", o.GRPCServiceName)
	}
	if o.AllowInsecure {
		q.add("allowInsecure", "1")
	}
	return uriLink("vless", o.UUID, p.Server, p.Port, q, p.Name), nil
}

func trojanLink(p model.Proxy) (string, error) {
	o := p.Trojan
	if o == nil {
		return "", missingPayload(p)
	}
	q := newQuery()
	q.add("security", o.Security)
	q.add("flow", o.Flow)
	q.add("sni", o.SNI)
	q.add("fp", o.Fingerprint)
	if o.Security == "reality" {
		q.add("pbk", o.PublicKey)
		q.add("sid", o.ShortID)
	}
	if o.AllowInsecure {
		q.add("allowInsecure", "1")
	}
	return uriLink("trojan", o.Password, p.Server, p.Port, q, p.Name), nil
}

func hysteria2Link(p model.Proxy) (string, error) {
	o := p.Hysteria2
	if o == nil {
		return "", missingPayload(p)
	}
	q := newQuery()
	q.add("sni", o.SNI)
	q.add("obfs", o.Obfs)
	q.add("obfs-password", o.ObfsPassword)
	q.add("alpn", strings.Join(o.ALPN, ","))
	if o.AllowInsecure {
		q.add("insecure", "1")
	}
	return uriLink("hy2", o.Password, p.Server, p.Port, q, p.Name), nil
}

func tuicLink(p model.Proxy) (string, error) {
	o := p.TUIC
	if o == nil {
		return "", missingPayload(p)
	}
	q := newQuery()
	q.add("congestion_control", o.CongestionControl)
	q.add("sni", o.SNI)
	q.add("alpn", strings.Join(o.ALPN, ","))
	if o.AllowInsecure {
		q.add("insecure", "1")
	}
	user := o.UUID
	if o.Password != "" {
		user += ":" + o.Password
	}
	return uriLink("tuic", user, p.Server, p.Port, q, p.Name), nil
}

func ssLink(p model.Proxy) (string, error) {
	o := p.SS
	if o == nil {
		return "", missingPayload(p)
	}
	userB64 := base64.RawURLEncoding.EncodeToString([]byte(o.Method + ":" + o.Password))

	var b strings.Builder
	b.WriteString("ss://")
	b.WriteString(userB64)
	b.WriteByte('@')
	b.WriteString(bracketHost(p.Server))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(p.Port))
	if p.Name != "" {
		b.WriteByte('#')
		b.WriteString(pctEncode(p.Name))
	}
	return b.String(), nil
}

// vmessWire mirrors the historical vmess JSON shape; numeric fields go out as
// strings for client compatibility.
type vmessWire struct {
	V    string `json:"v"`
	PS   string `json:"ps"`
	Add  string `json:"add"`
	Port string `json:"port"`
	ID   string `json:"id"`
	Aid  string `json:"aid"`
	Net  string `json:"net"`
	Type string `json:"type"`
	Host string `json:"host"`
	Path string `json:"path"`
	TLS  string `json:"tls"`
}

func vmessLink(p model.Proxy) (string, error) {
	o := p.VMess
	if o == nil {
		return "", missingPayload(p)
	}
	tls := ""
	if o.TLS {
		tls = "tls"
	}
	wire := vmessWire{
		V:    "2",
		PS:   p.Name,
		Add:  p.Server,
		Port: strconv.Itoa(p.Port),
		ID:   o.UUID,
		Aid:  strconv.Itoa(o.AlterID),
		Net:  o.Network,
		Type: "none",
		Host: o.Host,
		Path: o.Path,
		TLS:  tls,
	}
	raw, err := json.Marshal(wire)
	if err != nil {
		return "", &RenderError{
			AppError: model.AppError{
				Code:    "RENDER_ERROR",
				Message: "vmess JSON 序列化失败",
				Stage:   "render",
				Snippet: p.Name,
			},
			Cause: err,
		}
	}
	return "vmess://" + base64.StdEncoding.EncodeToString(raw), nil
}

func uriLink(scheme, userInfo, server string, port int, q *query, name string) string {
	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(pctEncode(userInfo))
	b.WriteByte('@')
	b.WriteString(bracketHost(server))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(port))
	if s := q.encode(); s != "" {
		b.WriteByte('?')
		b.WriteString(s)
	}
	if name != "" {
		b.WriteByte('#')
		b.WriteString(pctEncode(name))
	}
	return b.String()
}

// query keeps insertion order so link output stays deterministic.
type query struct {
	keys   []string
	values map[string]string
}

func newQuery() *query {
	return &query{values: make(map[string]string)}
}

func (q *query) add(k, v string) {
	if v == "" {
		return
	}
	if _, ok := q.values[k]; !ok {
		q.keys = append(q.keys, k)
	}
	q.values[k] = v
}

func (q *query) encode() string {
	var b strings.Builder
	for i, k := range q.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(pctEncode(q.values[k]))
	}
	return b.String()
}

func bracketHost(host string) string {
	// IPv6 host must be wrapped in [] in URI form.
	if strings.Contains(host, ":") && !(strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]")) {
		return "[" + host + "]"
	}
	return host
}

func pctEncode(s string) string {
	// RFC 3986 percent-encoding for query/fragment. Go's QueryEscape uses '+'
	// for spaces, which we rewrite to %20 for stability.
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func missingPayload(p model.Proxy) error {
	return &RenderError{
		AppError: model.AppError{
			Code:    "RENDER_ERROR",
			Message: fmt.Sprintf("节点缺少 %s 协议字段", p.Protocol),
			Stage:   "render",
			Snippet: p.Name,
		},
	}
}
