package clash

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/xiaohuirong/txt2sub/internal/model"
)

func mergeNodes(names ...string) []model.Proxy {
	out := make([]model.Proxy, 0, len(names))
	for _, name := range names {
		out = append(out, model.Proxy{
			Protocol: model.ProtocolTrojan,
			Name:     name,
			Server:   "tr.com",
			Port:     443,
			Trojan:   &model.TrojanOpts{Password: "secret", Security: "tls"},
		})
	}
	return out
}

func decodeDoc(t *testing.T, out []byte) map[string]any {
	t.Helper()
	var doc map[string]any
	if err := yaml.Unmarshal(out, &doc); err != nil {
		t.Fatalf("merge output is not valid yaml: %v\n%s", err, out)
	}
	return doc
}

func proxyNames(t *testing.T, doc map[string]any) []string {
	t.Helper()
	seq, ok := doc["proxies"].([]any)
	if !ok {
		t.Fatalf("proxies is %T, want sequence", doc["proxies"])
	}
	names := make([]string, 0, len(seq))
	for _, entry := range seq {
		m, ok := entry.(map[string]any)
		if !ok {
			t.Fatalf("proxy entry is %T, want mapping", entry)
		}
		names = append(names, m["name"].(string))
	}
	return names
}

func groupMembers(t *testing.T, doc map[string]any, group string) []string {
	t.Helper()
	groups, ok := doc["proxy-groups"].([]any)
	if !ok {
		t.Fatalf("proxy-groups is %T, want sequence", doc["proxy-groups"])
	}
	for _, entry := range groups {
		m, ok := entry.(map[string]any)
		if !ok || m["name"] != group {
			continue
		}
		raw, ok := m["proxies"].([]any)
		if !ok {
			t.Fatalf("group %q proxies is %T, want sequence", group, m["proxies"])
		}
		members := make([]string, 0, len(raw))
		for _, v := range raw {
			members = append(members, v.(string))
		}
		return members
	}
	t.Fatalf("group %q not found", group)
	return nil
}

func TestMerge_DefaultDocument(t *testing.T) {
	out, err := Merge("", mergeNodes("A", "B"))
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	doc := decodeDoc(t, out)

	names := proxyNames(t, doc)
	if len(names) != 2 || names[0] != "A" || names[1] != "B" {
		t.Fatalf("proxies=%v, want=[A B]", names)
	}
	members := groupMembers(t, doc, TargetGroup)
	if len(members) != 2 || members[0] != "A" || members[1] != "B" {
		t.Fatalf("group members=%v, want=[A B]", members)
	}
}

func TestMerge_AppendsToTargetGroup(t *testing.T) {
	tpl := strings.Join([]string{
		"proxies:",
		"proxy-groups:",
		"  - name: PROXY",
		"    type: select",
		"    proxies:",
		"      - DIRECT",
	}, "\n")

	out, err := Merge(tpl, mergeNodes("A", "B"))
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	doc := decodeDoc(t, out)

	members := groupMembers(t, doc, TargetGroup)
	want := []string{"DIRECT", "A", "B"}
	if len(members) != len(want) {
		t.Fatalf("members=%v, want=%v", members, want)
	}
	for i := range want {
		if members[i] != want[i] {
			t.Fatalf("members=%v, want=%v", members, want)
		}
	}
}

func TestMerge_NullProxiesAndNoGroups(t *testing.T) {
	tpl := "mixed-port: 7890\nproxies: null\n"

	out, err := Merge(tpl, mergeNodes("A"))
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	doc := decodeDoc(t, out)

	names := proxyNames(t, doc)
	if len(names) != 1 || names[0] != "A" {
		t.Fatalf("proxies=%v, want=[A]", names)
	}
	if _, present := doc["proxy-groups"]; present {
		t.Fatalf("proxy-groups was created, want it absent")
	}
}

func TestMerge_UnmatchedGroupLeftUntouched(t *testing.T) {
	tpl := strings.Join([]string{
		"proxy-groups:",
		"  - name: OTHER",
		"    type: select",
		"    proxies:",
		"      - DIRECT",
	}, "\n")

	out, err := Merge(tpl, mergeNodes("A"))
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	doc := decodeDoc(t, out)

	members := groupMembers(t, doc, "OTHER")
	if len(members) != 1 || members[0] != "DIRECT" {
		t.Fatalf("OTHER members=%v, want=[DIRECT]", members)
	}
}

func TestMerge_GroupWithoutProxiesList(t *testing.T) {
	tpl := strings.Join([]string{
		"proxy-groups:",
		"  - name: PROXY",
		"    type: select",
	}, "\n")

	out, err := Merge(tpl, mergeNodes("A", "B"))
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	doc := decodeDoc(t, out)

	members := groupMembers(t, doc, TargetGroup)
	if len(members) != 2 || members[0] != "A" || members[1] != "B" {
		t.Fatalf("members=%v, want=[A B]", members)
	}
}

func TestMerge_PreservesUnrelatedKeysAndOrder(t *testing.T) {
	tpl := strings.Join([]string{
		"mixed-port: 7890",
		"mode: rule",
		"dns:",
		"  enable: true",
		"proxies:",
		"rules:",
		"  - MATCH,DIRECT",
	}, "\n")

	out, err := Merge(tpl, mergeNodes("A"))
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("mixed-port: 7890\n")) {
		t.Fatalf("top key order changed:\n%s", out)
	}
	doc := decodeDoc(t, out)
	if doc["mode"] != "rule" {
		t.Fatalf("mode=%v, want=rule", doc["mode"])
	}
	dns, ok := doc["dns"].(map[string]any)
	if !ok || dns["enable"] != true {
		t.Fatalf("dns section altered: %v", doc["dns"])
	}
	rules, ok := doc["rules"].([]any)
	if !ok || len(rules) != 1 || rules[0] != "MATCH,DIRECT" {
		t.Fatalf("rules altered: %v", doc["rules"])
	}
}

func TestMerge_RenamesAgainstTemplateEntries(t *testing.T) {
	tpl := strings.Join([]string{
		"proxies:",
		"  - name: HK",
		"    type: ss",
		"    server: a.com",
		"    port: 443",
		"    cipher: aes-256-gcm",
		"    password: x",
		"proxy-groups:",
		"  - name: PROXY",
		"    type: select",
		"    proxies:",
		"      - HK",
	}, "\n")

	out, err := Merge(tpl, mergeNodes("HK"))
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	doc := decodeDoc(t, out)

	names := proxyNames(t, doc)
	if len(names) != 2 || names[0] != "HK" || names[1] != "HK-2" {
		t.Fatalf("proxies=%v, want=[HK HK-2]", names)
	}
	members := groupMembers(t, doc, TargetGroup)
	if len(members) != 2 || members[1] != "HK-2" {
		t.Fatalf("members=%v, want=[HK HK-2]", members)
	}
}

func TestMerge_CommentOnlyTemplate(t *testing.T) {
	out, err := Merge("# nothing but a comment\n", mergeNodes("A"))
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	doc := decodeDoc(t, out)
	names := proxyNames(t, doc)
	if len(names) != 1 || names[0] != "A" {
		t.Fatalf("proxies=%v, want=[A]", names)
	}
}

func TestMerge_InvalidTemplateFatal(t *testing.T) {
	for _, tpl := range []string{
		"proxies: [unterminated",
		"- just\n- a\n- list\n",
	} {
		_, err := Merge(tpl, mergeNodes("A"))
		if err == nil {
			t.Fatalf("expected error for %q", tpl)
		}
		var te *TemplateError
		if !errors.As(err, &te) {
			t.Fatalf("error type=%T, want *TemplateError", err)
		}
		if te.AppError.Code != "TEMPLATE_PARSE_ERROR" {
			t.Fatalf("code=%q, want=%q", te.AppError.Code, "TEMPLATE_PARSE_ERROR")
		}
	}
}

func TestMerge_Deterministic(t *testing.T) {
	tpl := "mode: rule\nproxy-groups:\n  - name: PROXY\n    type: select\n    proxies:\n      - DIRECT\n"
	nodes := mergeNodes("A", "B", "C")

	first, err := Merge(tpl, nodes)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	second, err := Merge(tpl, nodes)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("output differs between runs")
	}
}

func TestProxyNode_VLESSRealityShape(t *testing.T) {
	p := model.Proxy{
		Protocol: model.ProtocolVLESS,
		Name:     "R",
		Server:   "1.2.3.4",
		Port:     443,
		VLESS: &model.VLESSOpts{
			UUID:      "uuid",
			Security:  "reality",
			Network:   "tcp",
			SNI:       "example.com",
			PublicKey: "pbk",
			ShortID:   "sid",
		},
	}
	out, err := Merge("", []model.Proxy{p})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	doc := decodeDoc(t, out)
	entry := doc["proxies"].([]any)[0].(map[string]any)

	if entry["type"] != "vless" || entry["tls"] != true || entry["udp"] != true {
		t.Fatalf("entry=%v", entry)
	}
	if entry["servername"] != "example.com" {
		t.Fatalf("servername=%v, want example.com", entry["servername"])
	}
	reality, ok := entry["reality-opts"].(map[string]any)
	if !ok {
		t.Fatalf("reality-opts missing: %v", entry)
	}
	if reality["public-key"] != "pbk" || reality["short-id"] != "sid" {
		t.Fatalf("reality-opts=%v", reality)
	}
}

func TestProxyNode_WSHostFallsBackToSNI(t *testing.T) {
	p := model.Proxy{
		Protocol: model.ProtocolVLESS,
		Name:     "W",
		Server:   "9.9.9.9",
		Port:     443,
		VLESS: &model.VLESSOpts{
			UUID:     "uuid",
			Security: "tls",
			Network:  "ws",
			SNI:      "cdn.example.com",
			WSPath:   "/ws",
		},
	}
	out, err := Merge("", []model.Proxy{p})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	doc := decodeDoc(t, out)
	entry := doc["proxies"].([]any)[0].(map[string]any)
	ws := entry["ws-opts"].(map[string]any)
	headers := ws["headers"].(map[string]any)
	if headers["Host"] != "cdn.example.com" {
		t.Fatalf("Host=%v, want cdn.example.com", headers["Host"])
	}
	if ws["path"] != "/ws" {
		t.Fatalf("path=%v, want /ws", ws["path"])
	}
}
