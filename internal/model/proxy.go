package model

// Protocol identifies one of the six supported share-link dialects. The
// string values double as the canonical URI scheme used by the renderer
// (hysteria2 additionally accepts/emits the short "hy2" scheme).
type Protocol string

const (
	ProtocolVLESS       Protocol = "vless"
	ProtocolVMess       Protocol = "vmess"
	ProtocolHysteria2   Protocol = "hysteria2"
	ProtocolTrojan      Protocol = "trojan"
	ProtocolShadowsocks Protocol = "ss"
	ProtocolTUIC        Protocol = "tuic"
)

// Proxy is the canonical node produced by the decoders and consumed by both
// renderers. It is a tagged variant: Protocol selects which payload pointer
// is set; exactly one is non-nil on a decoded node.
//
// Name may be empty right after decoding (link had no #fragment); the convert
// phase synthesizes and de-duplicates names before rendering. Nodes are not
// mutated after that pass.
type Proxy struct {
	Protocol Protocol

	Name   string
	Server string
	Port   int

	VLESS     *VLESSOpts
	VMess     *VMessOpts
	Hysteria2 *Hysteria2Opts
	Trojan    *TrojanOpts
	SS        *SSOpts
	TUIC      *TUICOpts
}

// VLESSOpts carries the vless:// specific payload.
type VLESSOpts struct {
	UUID     string
	Flow     string
	Security string // "none" | "tls" | "reality"
	Network  string // "tcp" | "ws" | "grpc"

	SNI           string
	Fingerprint   string
	AllowInsecure bool

	// reality only
	PublicKey string
	ShortID   string

	// ws only
	WSPath string
	WSHost string

	// grpc only
	GRPCServiceName string
}

// VMessOpts carries the fields of the vmess Base64-JSON payload.
type VMessOpts struct {
	UUID    string
	AlterID int
	Network string // "tcp" | "ws"
	Host    string
	Path    string
	TLS     bool
}

type Hysteria2Opts struct {
	Password      string
	SNI           string
	Obfs          string
	ObfsPassword  string
	ALPN          []string
	AllowInsecure bool
}

type TrojanOpts struct {
	Password string
	Security string // "tls" | "reality"
	Flow     string

	SNI           string
	Fingerprint   string
	AllowInsecure bool

	// reality only
	PublicKey string
	ShortID   string
}

type SSOpts struct {
	Method   string
	Password string
}

type TUICOpts struct {
	UUID              string
	Password          string
	CongestionControl string
	SNI               string
	ALPN              []string
	AllowInsecure     bool
}
