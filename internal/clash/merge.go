package clash

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xiaohuirong/txt2sub/internal/model"
)

// TargetGroup is the proxy-group name that receives generated node names.
// The merge is additive only: a template without this group keeps its
// proxy-groups exactly as written.
const TargetGroup = "PROXY"

// Merge injects the generated nodes into the supplied template and returns
// the serialized document. The template is handled as a generic YAML node
// tree: only the top-level "proxies" sequence and the TargetGroup entry under
// "proxy-groups" are touched, everything else passes through with its order
// and content intact.
//
// An empty templateText synthesizes the minimal default document instead.
func Merge(templateText string, nodes []model.Proxy) ([]byte, error) {
	if strings.TrimSpace(templateText) == "" {
		return marshal(defaultDocument(nodes))
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(templateText), &doc); err != nil {
		return nil, templateError("TEMPLATE_PARSE_ERROR", "模板 YAML 解析失败", snippetOf(templateText), err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		// A template of only comments/whitespace parses to nothing; treat it
		// as an empty mapping.
		doc = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, templateError("TEMPLATE_PARSE_ERROR", "模板顶层必须是映射", snippetOf(templateText), nil)
	}

	nodes = renameAgainst(existingProxyNames(root), nodes)

	proxiesSeq := ensureSequence(root, "proxies")
	for i := range nodes {
		proxiesSeq.Content = append(proxiesSeq.Content, proxyNode(nodes[i]))
	}

	injectGroupMembers(root, nodes)

	return marshal(&doc)
}

// defaultDocument is used when no template is supplied: just the generated
// proxies plus one select group holding all of them.
func defaultDocument(nodes []model.Proxy) *yaml.Node {
	proxies := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	names := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for i := range nodes {
		proxies.Content = append(proxies.Content, proxyNode(nodes[i]))
		names.Content = append(names.Content, strNode(nodes[i].Name))
	}

	group := mapping()
	appendPair(group, "name", strNode(TargetGroup))
	appendPair(group, "type", strNode("select"))
	appendPair(group, "proxies", names)

	root := mapping()
	appendPair(root, "proxies", proxies)
	appendPair(root, "proxy-groups", &yaml.Node{
		Kind:    yaml.SequenceNode,
		Tag:     "!!seq",
		Content: []*yaml.Node{group},
	})

	return &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}
}

// injectGroupMembers appends the generated node names to the TargetGroup's
// proxies list. A missing or unusable proxy-groups section, or an absent
// TargetGroup, is not an error: the section is left untouched.
func injectGroupMembers(root *yaml.Node, nodes []model.Proxy) {
	groups := lookup(root, "proxy-groups")
	if groups == nil || groups.Kind != yaml.SequenceNode {
		return
	}
	for _, group := range groups.Content {
		if group.Kind != yaml.MappingNode {
			continue
		}
		name := lookup(group, "name")
		if name == nil || name.Value != TargetGroup {
			continue
		}
		members := lookup(group, "proxies")
		if members == nil || members.Kind != yaml.SequenceNode {
			members = &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
			setKey(group, "proxies", members)
		}
		for i := range nodes {
			members.Content = append(members.Content, strNode(nodes[i].Name))
		}
		return
	}
}

// renameAgainst suffixes generated node names that collide with names already
// present in the template. Template entries are never renamed or dropped.
func renameAgainst(taken map[string]struct{}, nodes []model.Proxy) []model.Proxy {
	if len(taken) == 0 {
		return nodes
	}
	out := make([]model.Proxy, len(nodes))
	copy(out, nodes)
	for i := range out {
		name := out[i].Name
		if _, clash := taken[name]; clash {
			for n := 2; ; n++ {
				try := fmt.Sprintf("%s-%d", out[i].Name, n)
				if _, ok := taken[try]; ok {
					continue
				}
				name = try
				break
			}
		}
		out[i].Name = name
		taken[name] = struct{}{}
	}
	return out
}

func existingProxyNames(root *yaml.Node) map[string]struct{} {
	out := make(map[string]struct{})
	proxies := lookup(root, "proxies")
	if proxies == nil || proxies.Kind != yaml.SequenceNode {
		return out
	}
	for _, entry := range proxies.Content {
		if entry.Kind != yaml.MappingNode {
			continue
		}
		if name := lookup(entry, "name"); name != nil && name.Value != "" {
			out[name.Value] = struct{}{}
		}
	}
	return out
}

// ensureSequence returns the sequence value of key, replacing an absent, null
// or non-sequence value with a fresh empty sequence.
func ensureSequence(root *yaml.Node, key string) *yaml.Node {
	v := lookup(root, key)
	if v != nil && v.Kind == yaml.SequenceNode {
		return v
	}
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	setKey(root, key, seq)
	return seq
}

// lookup finds the value node of a top-level key in a mapping, or nil.
func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// setKey replaces the value of key in place, appending the pair when absent
// so untouched keys keep their position.
func setKey(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content, strNode(key), value)
}

func marshal(doc *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, templateError("TEMPLATE_RENDER_ERROR", "配置序列化失败", "", err)
	}
	if err := enc.Close(); err != nil {
		return nil, templateError("TEMPLATE_RENDER_ERROR", "配置序列化失败", "", err)
	}
	return buf.Bytes(), nil
}

func snippetOf(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 200 {
		return s[:200]
	}
	return s
}
