package sub

import (
	"github.com/xiaohuirong/txt2sub/internal/model"
)

func parseVLESS(s string) (model.Proxy, error) {
	u, err := splitURI(s, "vless")
	if err != nil {
		return model.Proxy{}, newParseError(0, s, "LINK_PARSE_ERROR", "vless 链接格式不合法", "", err)
	}

	security := u.Query["security"]
	if security == "" {
		security = "none"
	}
	switch security {
	case "none", "tls", "reality":
	default:
		return model.Proxy{}, newParseError(0, s, "LINK_PARSE_ERROR", "vless security 仅支持 none/tls/reality", security, nil)
	}

	network := u.Query["type"]
	if network == "" {
		network = "tcp"
	}
	switch network {
	case "tcp", "ws", "grpc":
	default:
		return model.Proxy{}, newParseError(0, s, "LINK_PARSE_ERROR", "vless 传输层仅支持 tcp/ws/grpc", network, nil)
	}

	opts := &model.VLESSOpts{
		UUID:          u.UserInfo,
		Flow:          u.Query["flow"],
		Security:      security,
		Network:       network,
		SNI:           u.Query["sni"],
		Fingerprint:   u.Query["fp"],
		AllowInsecure: boolFlag(u.Query["allowInsecure"]),
	}
	if security == "reality" {
		opts.PublicKey = u.Query["pbk"]
		opts.ShortID = u.Query["sid"]
	}
	switch network {
	case "ws":
		opts.WSPath = u.Query["path"]
		if opts.WSPath == "" {
			opts.WSPath = "/"
		}
		opts.WSHost = u.Query["host"]
	case "grpc":
		opts.GRPCServiceName = u.Query["serviceName"]
	}

	name := u.Name
	if name == "" {
		name = defaultName(model.ProtocolVLESS, u.Server, u.Port)
	}

	return model.Proxy{
		Protocol: model.ProtocolVLESS,
		Name:     name,
		Server:   u.Server,
		Port:     u.Port,
		VLESS:    opts,
	}, nil
}
