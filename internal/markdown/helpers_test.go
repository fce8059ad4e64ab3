package markdown_test

import (
	"testing"

	"larkdigest/internal/markdown"
)

func TestEscapeV2(t *testing.T) {
	tests := map[string]string{
		"plain text":        "plain text",
		"GPT-5.1 (preview)": `GPT\-5\.1 \(preview\)`,
		"a_b*c~d":           `a\_b\*c\~d`,
		"人工智能!":             `人工智能\!`,
	}

	for input, want := range tests {
		if got := markdown.EscapeV2(input); got != want {
			t.Fatalf("EscapeV2(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestEscapeLark(t *testing.T) {
	tests := map[string]string{
		"plain text, no markup.": "plain text, no markup.",
		"**bold** & <tag>":       "&#42;&#42;bold&#42;&#42; &#38; &#60;tag&#62;",
		"[link](x) snake_case":   "&#91;link&#93;(x) snake&#95;case",
		"模型发布":                   "模型发布",
	}

	for input, want := range tests {
		if got := markdown.EscapeLark(input); got != want {
			t.Fatalf("EscapeLark(%q) = %q, want %q", input, got, want)
		}
	}
}
