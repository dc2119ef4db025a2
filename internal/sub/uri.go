package sub

import (
	"encoding/base64"
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// uriParts is the decomposition shared by the four URI-shaped dialects
// (vless/trojan/hysteria2/tuic): scheme://userinfo@host:port?query#fragment.
type uriParts struct {
	UserInfo string // percent-decoded
	Server   string
	Port     int
	Query    map[string]string // percent-decoded, last occurrence wins
	Name     string            // percent-decoded fragment, "" when absent
}

func splitURI(s string, scheme string) (uriParts, error) {
	rest := strings.TrimPrefix(s, scheme+"://")

	withoutFrag, frag, hasFrag := strings.Cut(rest, "#")
	name := ""
	if hasFrag {
		decoded, err := url.PathUnescape(frag)
		if err != nil {
			return uriParts{}, errors.New("fragment percent-decoding failed")
		}
		name = strings.TrimSpace(decoded)
		if strings.ContainsAny(name, "\r\n\x00") {
			return uriParts{}, errors.New("fragment contains control chars")
		}
	}

	withoutQuery, query, hasQuery := strings.Cut(withoutFrag, "?")
	q, err := parseQuery(query, hasQuery)
	if err != nil {
		return uriParts{}, err
	}

	// userinfo may itself contain percent-encoded '@'; split on the last one
	// so "p@ss@host:443" style passwords survive.
	at := strings.LastIndexByte(withoutQuery, '@')
	if at < 0 {
		return uriParts{}, errors.New("missing '@' separator")
	}
	userRaw := withoutQuery[:at]
	hostPort := withoutQuery[at+1:]

	user, err := url.PathUnescape(userRaw)
	if err != nil {
		return uriParts{}, errors.New("userinfo percent-decoding failed")
	}
	if user == "" {
		return uriParts{}, errors.New("empty userinfo")
	}

	// Tolerate a bare trailing "/" before the query, nothing more.
	if idx := strings.IndexByte(hostPort, '/'); idx >= 0 {
		if hostPort[idx:] != "/" {
			return uriParts{}, errors.New("path segment is not supported")
		}
		hostPort = hostPort[:idx]
	}

	server, port, err := parseHostPort(hostPort)
	if err != nil {
		return uriParts{}, err
	}

	return uriParts{
		UserInfo: user,
		Server:   server,
		Port:     port,
		Query:    q,
		Name:     name,
	}, nil
}

// parseQuery parses "k=v&k2=v2" into a decoded map. Keys are case-sensitive
// and a repeated key keeps its last value. A bare key (no '=') maps to "".
func parseQuery(query string, hasQuery bool) (map[string]string, error) {
	out := make(map[string]string)
	if !hasQuery || query == "" {
		return out, nil
	}
	for _, part := range strings.Split(query, "&") {
		if part == "" {
			continue
		}
		kRaw, vRaw, _ := strings.Cut(part, "=")
		k, err := url.QueryUnescape(kRaw)
		if err != nil {
			return nil, errors.New("query key percent-decoding failed")
		}
		v, err := url.QueryUnescape(vRaw)
		if err != nil {
			return nil, errors.New("query value percent-decoding failed")
		}
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out, nil
}

func parseHostPort(s string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return "", 0, err
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "", 0, errors.New("empty host")
	}
	portInt, err := strconv.Atoi(strings.TrimSpace(portStr))
	if err != nil {
		return "", 0, err
	}
	if portInt < 1 || portInt > 65535 {
		return "", 0, errors.New("port out of range")
	}
	return host, portInt, nil
}

func decodeB64ToString(s string) (string, error) {
	b, err := decodeB64ToBytes(s)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.New("decoded payload is not valid utf-8")
	}
	return string(b), nil
}

func decodeB64ToBytes(s string) ([]byte, error) {
	// Try standard alphabet (with padding) first, then URL-safe, then raw (no padding).
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func splitALPN(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func boolFlag(s string) bool {
	return s == "1" || strings.EqualFold(s, "true")
}
