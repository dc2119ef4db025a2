package sub

import (
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/xiaohuirong/txt2sub/internal/model"
)

// vmessPayload is the JSON object carried after "vmess://" as Base64.
// Numeric fields arrive as either strings or numbers in the wild, so they
// decode through flexInt.
type vmessPayload struct {
	PS   string  `json:"ps"`
	Add  string  `json:"add"`
	Port flexInt `json:"port"`
	ID   string  `json:"id"`
	Aid  flexInt `json:"aid"`
	Net  string  `json:"net"`
	Host string  `json:"host"`
	Path string  `json:"path"`
	TLS  string  `json:"tls"`
}

func parseVMess(s string) (model.Proxy, error) {
	blob := strings.TrimPrefix(s, "vmess://")
	decoded, err := decodeB64ToString(blob)
	if err != nil {
		return model.Proxy{}, newParseError(0, s, "LINK_PARSE_ERROR", "vmess base64 解码失败", "", err)
	}

	var v vmessPayload
	if err := json.Unmarshal([]byte(decoded), &v); err != nil {
		return model.Proxy{}, newParseError(0, s, "LINK_PARSE_ERROR", "vmess JSON 解析失败", "", err)
	}

	if strings.TrimSpace(v.Add) == "" {
		return model.Proxy{}, newParseError(0, s, "LINK_PARSE_ERROR", "vmess 缺少必需字段 add", "", nil)
	}
	if strings.TrimSpace(v.ID) == "" {
		return model.Proxy{}, newParseError(0, s, "LINK_PARSE_ERROR", "vmess 缺少必需字段 id", "", nil)
	}
	if v.Port < 1 || v.Port > 65535 {
		return model.Proxy{}, newParseError(0, s, "LINK_PARSE_ERROR", "vmess 端口不合法", fmt.Sprintf("port=%d", v.Port), nil)
	}
	if v.Aid < 0 {
		return model.Proxy{}, newParseError(0, s, "LINK_PARSE_ERROR", "vmess alterId 不合法", "", nil)
	}

	network := strings.TrimSpace(v.Net)
	if network == "" {
		network = "tcp"
	}
	switch network {
	case "tcp", "ws":
	default:
		return model.Proxy{}, newParseError(0, s, "LINK_PARSE_ERROR", "vmess 传输层仅支持 tcp/ws", network, nil)
	}

	path := v.Path
	if network == "ws" && path == "" {
		path = "/"
	}

	name := strings.TrimSpace(v.PS)
	if name == "" {
		name = defaultName(model.ProtocolVMess, v.Add, int(v.Port))
	}

	return model.Proxy{
		Protocol: model.ProtocolVMess,
		Name:     name,
		Server:   strings.TrimSpace(v.Add),
		Port:     int(v.Port),
		VMess: &model.VMessOpts{
			UUID:    strings.TrimSpace(v.ID),
			AlterID: int(v.Aid),
			Network: network,
			Host:    v.Host,
			Path:    path,
			TLS:     v.TLS == "tls",
		},
	}, nil
}

// flexInt accepts both 443 and "443".
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not an integer: %q", s)
	}
	*f = flexInt(n)
	return nil
}

func (f flexInt) MarshalJSON() ([]byte, error) {
	// Emitted as a string for compatibility with clients that expect the
	// historical string form.
	return []byte(strconv.Quote(strconv.Itoa(int(f)))), nil
}
