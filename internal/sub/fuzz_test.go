package sub

import (
	"testing"

	"github.com/xiaohuirong/txt2sub/internal/model"
)

// FuzzParseLink checks the invariants every successful decode must hold:
// a known protocol, a non-empty server, a port inside 1..65535 and exactly
// the matching payload pointer set.
func FuzzParseLink(f *testing.F) {
	seeds := []string{
		"vless://uuid@1.2.3.4:443?security=reality&sni=example.com#Node1",
		"vless://uuid@a.com:443?type=ws&path=%2Fchat&host=h.com#WS",
		"vmess://eyJwcyI6Im4iLCJhZGQiOiJhLmNvbSIsInBvcnQiOiI0NDMiLCJpZCI6IngifQ==",
		"hy2://pw@h.example.com:8443?sni=h.example.com#H1",
		"hysteria2://pw@h.example.com:8443#H1",
		"trojan://secret@tr.com:443?sni=tr.com#TR",
		"ss://YWVzLTI1Ni1nY206cGFzc3dvcmQ=@server.com:8080#SS1",
		"ss://chacha20-ietf-poly1305:secret@ex.com:8388",
		"tuic://uuid-1:pw@t.com:443?congestion_control=bbr#T1",
		"tuic://badformat",
		"unknown://x",
		"",
		"ss://",
		"vless://@:0",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, link string) {
		p, err := ParseLink(link)
		if err != nil {
			return
		}
		switch p.Protocol {
		case model.ProtocolVLESS, model.ProtocolVMess, model.ProtocolHysteria2,
			model.ProtocolTrojan, model.ProtocolShadowsocks, model.ProtocolTUIC:
		default:
			t.Fatalf("unknown protocol %q for %q", p.Protocol, link)
		}
		if p.Server == "" {
			t.Fatalf("empty server for %q", link)
		}
		if p.Port < 1 || p.Port > 65535 {
			t.Fatalf("port %d out of range for %q", p.Port, link)
		}
		if p.Name == "" {
			t.Fatalf("empty name for %q", link)
		}
		var set int
		if p.VLESS != nil {
			set++
		}
		if p.VMess != nil {
			set++
		}
		if p.Hysteria2 != nil {
			set++
		}
		if p.Trojan != nil {
			set++
		}
		if p.SS != nil {
			set++
		}
		if p.TUIC != nil {
			set++
		}
		if set != 1 {
			t.Fatalf("%d payloads set for %q, want exactly 1", set, link)
		}
	})
}
