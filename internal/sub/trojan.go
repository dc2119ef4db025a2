package sub

import (
	"github.com/xiaohuirong/txt2sub/internal/model"
)

func parseTrojan(s string) (model.Proxy, error) {
	u, err := splitURI(s, "trojan")
	if err != nil {
		return model.Proxy{}, newParseError(0, s, "LINK_PARSE_ERROR", "trojan 链接格式不合法", "", err)
	}

	// Trojan is TLS by default; "reality" is the only other accepted mode.
	security := u.Query["security"]
	if security == "" {
		security = "tls"
	}
	switch security {
	case "tls", "reality":
	default:
		return model.Proxy{}, newParseError(0, s, "LINK_PARSE_ERROR", "trojan security 仅支持 tls/reality", security, nil)
	}

	opts := &model.TrojanOpts{
		Password:      u.UserInfo,
		Security:      security,
		Flow:          u.Query["flow"],
		SNI:           u.Query["sni"],
		Fingerprint:   u.Query["fp"],
		AllowInsecure: boolFlag(u.Query["allowInsecure"]),
	}
	if security == "reality" {
		opts.PublicKey = u.Query["pbk"]
		opts.ShortID = u.Query["sid"]
	}

	name := u.Name
	if name == "" {
		name = defaultName(model.ProtocolTrojan, u.Server, u.Port)
	}

	return model.Proxy{
		Protocol: model.ProtocolTrojan,
		Name:     name,
		Server:   u.Server,
		Port:     u.Port,
		Trojan:   opts,
	}, nil
}
