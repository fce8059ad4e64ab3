package markdown

import "strings"

// Taken from https://core.telegram.org/bots/api#markdownv2-style.
const mdV2SpecialChars = `._[](){}#|!+-=*~>` + "`"

//nolint:gochecknoglobals // Lookup tables are built once and never written.
var (
	mdV2Replacements = mdV2ReplacementTable()
	larkReplacements = larkReplacementTable()
)

// EscapeV2 escapes text for Telegram MarkdownV2.
func EscapeV2(input string) string {
	return escape(input, &mdV2Replacements)
}

// EscapeLark escapes text for Lark card "lark_md" fields, which accept HTML
// character references for characters that would otherwise start markup.
func EscapeLark(input string) string {
	return escape(input, &larkReplacements)
}

func escape(input string, replacements *[256]string) string {
	extra := 0

	for i := range len(input) {
		if r := replacements[input[i]]; r != "" {
			extra += len(r) - 1
		}
	}
	if extra == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input) + extra)

	for i := range len(input) {
		c := input[i]
		if r := replacements[c]; r != "" {
			b.WriteString(r)
			continue
		}
		b.WriteByte(c)
	}

	return b.String()
}

func mdV2ReplacementTable() [256]string {
	var m [256]string
	for _, c := range []byte(mdV2SpecialChars) {
		m[c] = `\` + string(c)
	}
	return m
}

func larkReplacementTable() [256]string {
	var m [256]string
	m['&'] = "&#38;"
	m['*'] = "&#42;"
	m['_'] = "&#95;"
	m['~'] = "&#126;"
	m['`'] = "&#96;"
	m['['] = "&#91;"
	m[']'] = "&#93;"
	m['<'] = "&#60;"
	m['>'] = "&#62;"
	return m
}
