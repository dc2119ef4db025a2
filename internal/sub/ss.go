package sub

import (
	"errors"
	"net/url"
	"strings"

	"github.com/xiaohuirong/txt2sub/internal/model"
)

// parseSS accepts three shadowsocks link shapes:
//
//	ss://method:password@host:port#name             (plaintext authority)
//	ss://<b64(method:password)>@host:port#name      (SIP002)
//	ss://<b64(method:password@host:port)>#name      (legacy, no '@' outside the blob)
//
// The plaintext authority is tried first; only when it lacks a ':' separator
// is the segment treated as Base64.
func parseSS(s string) (model.Proxy, error) {
	rest := strings.TrimPrefix(s, "ss://")

	withoutFrag, frag, hasFrag := strings.Cut(rest, "#")
	name := ""
	if hasFrag {
		decoded, err := url.PathUnescape(frag)
		if err != nil {
			return model.Proxy{}, newParseError(0, s, "LINK_PARSE_ERROR", "ss 节点名称 URL 解码失败", "", err)
		}
		name = strings.TrimSpace(decoded)
	}

	// Tolerate the SIP002 "/?plugin=..." tail by cutting at '?' and '/'.
	if idx := strings.IndexByte(withoutFrag, '?'); idx >= 0 {
		withoutFrag = withoutFrag[:idx]
	}
	withoutFrag = strings.TrimSuffix(withoutFrag, "/")
	if withoutFrag == "" {
		return model.Proxy{}, newParseError(0, s, "LINK_PARSE_ERROR", "ss:// 后缺少内容", "", nil)
	}

	var authority, hostPort string
	if at := strings.LastIndexByte(withoutFrag, '@'); at >= 0 {
		authority = withoutFrag[:at]
		hostPort = withoutFrag[at+1:]
	} else {
		// Legacy form: the whole blob is Base64 of "method:password@host:port".
		decoded, err := decodeB64ToString(withoutFrag)
		if err != nil {
			return model.Proxy{}, newParseError(0, s, "LINK_PARSE_ERROR", "ss base64 解码失败", "", err)
		}
		at := strings.LastIndexByte(decoded, '@')
		if at < 0 {
			return model.Proxy{}, newParseError(0, s, "LINK_PARSE_ERROR", "ss base64 解码结果缺少 @ 分隔符", "", nil)
		}
		authority = decoded[:at]
		hostPort = decoded[at+1:]
	}

	method, password, err := splitSSAuthority(authority)
	if err != nil {
		return model.Proxy{}, newParseError(0, s, "LINK_PARSE_ERROR", "ss 认证信息不合法", "expected method:password, plaintext or base64", err)
	}

	server, port, err := parseHostPort(hostPort)
	if err != nil {
		return model.Proxy{}, newParseError(0, s, "LINK_PARSE_ERROR", "ss 服务器地址或端口不合法", "", err)
	}

	if name == "" {
		name = defaultName(model.ProtocolShadowsocks, server, port)
	}

	return model.Proxy{
		Protocol: model.ProtocolShadowsocks,
		Name:     name,
		Server:   server,
		Port:     port,
		SS: &model.SSOpts{
			Method:   method,
			Password: password,
		},
	}, nil
}

func splitSSAuthority(authority string) (method, password string, err error) {
	if authority == "" {
		return "", "", errors.New("empty authority")
	}

	// Plaintext first.
	if colon := strings.IndexByte(authority, ':'); colon > 0 {
		method = authority[:colon]
		password = authority[colon+1:]
		if pw, err := url.PathUnescape(password); err == nil {
			password = pw
		}
		if method != "" && password != "" {
			return method, password, nil
		}
	}

	// Retry as Base64(method:password).
	decoded, err := decodeB64ToString(authority)
	if err != nil {
		return "", "", err
	}
	colon := strings.IndexByte(decoded, ':')
	if colon <= 0 || colon == len(decoded)-1 {
		return "", "", errors.New("decoded authority lacks method:password")
	}
	return decoded[:colon], decoded[colon+1:], nil
}
