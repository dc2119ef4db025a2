package clash

import (
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/xiaohuirong/txt2sub/internal/model"
)

// proxyNode renders one canonical node into the mapping shape Clash expects.
// Key names and their order follow the de-facto Clash proxy schema.
func proxyNode(p model.Proxy) *yaml.Node {
	m := mapping()
	appendPair(m, "name", strNode(p.Name))
	appendPair(m, "type", strNode(clashType(p.Protocol)))
	appendPair(m, "server", strNode(p.Server))
	appendPair(m, "port", intNode(p.Port))

	switch p.Protocol {
	case model.ProtocolVLESS:
		vlessFields(m, p)
	case model.ProtocolVMess:
		vmessFields(m, p)
	case model.ProtocolHysteria2:
		hysteria2Fields(m, p)
	case model.ProtocolTrojan:
		trojanFields(m, p)
	case model.ProtocolShadowsocks:
		ssFields(m, p)
	case model.ProtocolTUIC:
		tuicFields(m, p)
	}
	return m
}

func clashType(proto model.Protocol) string {
	// Protocol values already match Clash type names.
	return string(proto)
}

func vlessFields(m *yaml.Node, p model.Proxy) {
	o := p.VLESS
	appendPair(m, "uuid", strNode(o.UUID))
	if o.Flow != "" {
		appendPair(m, "flow", strNode(o.Flow))
	}
	appendPair(m, "udp", boolNode(true))
	appendPair(m, "tls", boolNode(o.Security != "none"))
	if o.AllowInsecure {
		appendPair(m, "skip-cert-verify", boolNode(true))
	}
	if o.SNI != "" {
		appendPair(m, "servername", strNode(o.SNI))
	}
	appendPair(m, "network", strNode(o.Network))
	if o.Fingerprint != "" {
		appendPair(m, "client-fingerprint", strNode(o.Fingerprint))
	}
	if o.Security == "reality" {
		reality := mapping()
		appendPair(reality, "public-key", strNode(o.PublicKey))
		appendPair(reality, "short-id", strNode(o.ShortID))
		appendPair(m, "reality-opts", reality)
	}
	switch o.Network {
	case "ws":
		ws := mapping()
		appendPair(ws, "path", strNode(o.WSPath))
		host := o.WSHost
		if host == "" {
			host = o.SNI
		}
		if host == "" {
			host = p.Server
		}
		headers := mapping()
		appendPair(headers, "Host", strNode(host))
		appendPair(ws, "headers", headers)
		appendPair(m, "ws-opts", ws)
	case "grpc":
		grpc := mapping()
		appendPair(grpc, "grpc-service-name", strNode(o.GRPCServiceName))
		appendPair(m, "grpc-opts", grpc)
	}
}

func vmessFields(m *yaml.Node, p model.Proxy) {
	o := p.VMess
	appendPair(m, "uuid", strNode(o.UUID))
	appendPair(m, "alterId", intNode(o.AlterID))
	appendPair(m, "cipher", strNode("auto"))
	appendPair(m, "udp", boolNode(true))
	if o.TLS {
		appendPair(m, "tls", boolNode(true))
	}
	appendPair(m, "skip-cert-verify", boolNode(true))
	if o.Host != "" {
		appendPair(m, "servername", strNode(o.Host))
	}
	appendPair(m, "network", strNode(o.Network))
	if o.Network == "ws" {
		ws := mapping()
		appendPair(ws, "path", strNode(o.Path))
		if o.Host != "" {
			headers := mapping()
			appendPair(headers, "Host", strNode(o.Host))
			appendPair(ws, "headers", headers)
		}
		appendPair(m, "ws-opts", ws)
	}
}

func hysteria2Fields(m *yaml.Node, p model.Proxy) {
	o := p.Hysteria2
	appendPair(m, "password", strNode(o.Password))
	if o.SNI != "" {
		appendPair(m, "sni", strNode(o.SNI))
	}
	appendPair(m, "skip-cert-verify", boolNode(true))
	if o.Obfs != "" {
		appendPair(m, "obfs", strNode(o.Obfs))
		if o.ObfsPassword != "" {
			appendPair(m, "obfs-password", strNode(o.ObfsPassword))
		}
	}
	if len(o.ALPN) > 0 {
		appendPair(m, "alpn", strSeq(o.ALPN))
	}
}

func trojanFields(m *yaml.Node, p model.Proxy) {
	o := p.Trojan
	appendPair(m, "password", strNode(o.Password))
	appendPair(m, "udp", boolNode(true))
	appendPair(m, "tls", boolNode(true))
	appendPair(m, "skip-cert-verify", boolNode(true))
	if o.SNI != "" {
		appendPair(m, "servername", strNode(o.SNI))
	}
	if o.Fingerprint != "" {
		appendPair(m, "client-fingerprint", strNode(o.Fingerprint))
	}
	if o.Flow != "" {
		appendPair(m, "flow", strNode(o.Flow))
	}
	if o.Security == "reality" {
		reality := mapping()
		appendPair(reality, "public-key", strNode(o.PublicKey))
		appendPair(reality, "short-id", strNode(o.ShortID))
		appendPair(m, "reality-opts", reality)
	}
}

func ssFields(m *yaml.Node, p model.Proxy) {
	o := p.SS
	appendPair(m, "cipher", strNode(o.Method))
	appendPair(m, "password", strNode(o.Password))
	appendPair(m, "udp", boolNode(true))
}

func tuicFields(m *yaml.Node, p model.Proxy) {
	o := p.TUIC
	appendPair(m, "uuid", strNode(o.UUID))
	appendPair(m, "password", strNode(o.Password))
	appendPair(m, "udp", boolNode(true))
	if o.SNI != "" {
		appendPair(m, "sni", strNode(o.SNI))
	}
	if o.AllowInsecure {
		appendPair(m, "skip-cert-verify", boolNode(true))
	}
	if len(o.ALPN) > 0 {
		appendPair(m, "alpn", strSeq(o.ALPN))
	}
	if o.CongestionControl != "" {
		appendPair(m, "congestion-controller", strNode(o.CongestionControl))
	}
}

func mapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func appendPair(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, strNode(key), value)
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func intNode(i int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(i)}
}

func boolNode(b bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}
}

func strSeq(items []string) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, s := range items {
		seq.Content = append(seq.Content, strNode(s))
	}
	return seq
}
