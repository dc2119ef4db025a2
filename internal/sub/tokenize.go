package sub

import "strings"

// Line is one candidate link surviving the tokenizer, tagged with its 1-based
// position in the original text. That position is the canonical node order
// and is carried through to both renderers untouched.
type Line struct {
	No   int
	Text string
}

// SplitLinks splits raw source text into candidate link lines. A line is
// dropped when, after trimming, it is empty or starts with "#" or "//".
// No further validation happens here; malformed lines become decode failures
// downstream.
func SplitLinks(content string) []Line {
	content = stripUTF8BOM(content)
	lines := strings.Split(content, "\n")
	out := make([]Line, 0, len(lines))
	for i, raw := range lines {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "#") || strings.HasPrefix(text, "//") {
			continue
		}
		out = append(out, Line{No: i + 1, Text: text})
	}
	return out
}

func stripUTF8BOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}
