package sub

import (
	"strings"

	"github.com/xiaohuirong/txt2sub/internal/model"
)

func parseHysteria2(s string) (model.Proxy, error) {
	scheme := "hy2"
	if strings.HasPrefix(s, "hysteria2://") {
		scheme = "hysteria2"
	}
	u, err := splitURI(s, scheme)
	if err != nil {
		return model.Proxy{}, newParseError(0, s, "LINK_PARSE_ERROR", "hysteria2 链接格式不合法", "", err)
	}

	name := u.Name
	if name == "" {
		name = defaultName(model.ProtocolHysteria2, u.Server, u.Port)
	}

	return model.Proxy{
		Protocol: model.ProtocolHysteria2,
		Name:     name,
		Server:   u.Server,
		Port:     u.Port,
		Hysteria2: &model.Hysteria2Opts{
			Password:      u.UserInfo,
			SNI:           u.Query["sni"],
			Obfs:          u.Query["obfs"],
			ObfsPassword:  u.Query["obfs-password"],
			ALPN:          splitALPN(u.Query["alpn"]),
			AllowInsecure: boolFlag(u.Query["insecure"]),
		},
	}, nil
}
