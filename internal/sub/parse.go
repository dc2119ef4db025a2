package sub

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xiaohuirong/txt2sub/internal/model"
)

// Parse tokenizes raw source text and decodes every candidate line. Lines
// that fail to decode are collected as Failures and skipped; Parse itself
// never fails. Node order equals source line order.
func Parse(content string) ([]model.Proxy, []Failure) {
	lines := SplitLinks(content)

	nodes := make([]model.Proxy, 0, len(lines))
	var failures []Failure
	for _, line := range lines {
		p, err := ParseLink(line.Text)
		if err != nil {
			failures = append(failures, failureFromErr(line, err))
			continue
		}
		nodes = append(nodes, p)
	}
	return nodes, failures
}

// ParseLink decodes one raw link, dispatching on the scheme prefix.
func ParseLink(s string) (model.Proxy, error) {
	switch {
	case strings.HasPrefix(s, "vless://"):
		return parseVLESS(s)
	case strings.HasPrefix(s, "vmess://"):
		return parseVMess(s)
	case strings.HasPrefix(s, "hy2://"), strings.HasPrefix(s, "hysteria2://"):
		return parseHysteria2(s)
	case strings.HasPrefix(s, "trojan://"):
		return parseTrojan(s)
	case strings.HasPrefix(s, "ss://"):
		return parseSS(s)
	case strings.HasPrefix(s, "tuic://"):
		return parseTUIC(s)
	default:
		return model.Proxy{}, newParseError(0, s, "LINK_UNSUPPORTED_SCHEME", "不支持的协议", onlySchemesHint, nil)
	}
}

const onlySchemesHint = "supported: vless:// vmess:// hy2:// hysteria2:// trojan:// ss:// tuic://"

func failureFromErr(line Line, err error) Failure {
	var pe *ParseError
	if errors.As(err, &pe) {
		return Failure{
			Line:    line.No,
			Code:    pe.AppError.Code,
			Reason:  pe.AppError.Message,
			Snippet: truncateSnippet(line.Text, 200),
		}
	}
	return Failure{
		Line:    line.No,
		Code:    "LINK_PARSE_ERROR",
		Reason:  err.Error(),
		Snippet: truncateSnippet(line.Text, 200),
	}
}

// defaultName synthesizes a display label for a link without a #fragment.
func defaultName(proto model.Protocol, server string, port int) string {
	return fmt.Sprintf("%s-%s:%d", proto, server, port)
}
