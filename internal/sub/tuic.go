package sub

import (
	"strings"

	"github.com/xiaohuirong/txt2sub/internal/model"
)

func parseTUIC(s string) (model.Proxy, error) {
	u, err := splitURI(s, "tuic")
	if err != nil {
		return model.Proxy{}, newParseError(0, s, "LINK_PARSE_ERROR", "tuic 链接格式不合法", "", err)
	}

	// userinfo is uuid:password; the password part may be empty.
	uuid, password, _ := strings.Cut(u.UserInfo, ":")
	if uuid == "" {
		return model.Proxy{}, newParseError(0, s, "LINK_PARSE_ERROR", "tuic 缺少 uuid", "", nil)
	}

	name := u.Name
	if name == "" {
		name = defaultName(model.ProtocolTUIC, u.Server, u.Port)
	}

	return model.Proxy{
		Protocol: model.ProtocolTUIC,
		Name:     name,
		Server:   u.Server,
		Port:     u.Port,
		TUIC: &model.TUICOpts{
			UUID:              uuid,
			Password:          password,
			CongestionControl: u.Query["congestion_control"],
			SNI:               u.Query["sni"],
			ALPN:              splitALPN(u.Query["alpn"]),
			AllowInsecure:     boolFlag(u.Query["insecure"]),
		},
	}, nil
}
