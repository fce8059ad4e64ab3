package lark

import (
	"fmt"
	"strings"
	"time"

	"larkdigest/internal/digest"
	"larkdigest/internal/markdown"
)

const (
	MsgTypeText        = "text"
	MsgTypeInteractive = "interactive"

	TagDiv       = "div"
	TagAction    = "action"
	TagDivider   = "hr"
	TagNote      = "note"
	TagButton    = "button"
	TagPlainText = "plain_text"
	TagLarkMD    = "lark_md"

	dateLayout        = "2006-01-02"
	headerTemplate    = "blue"
	readOriginalLabel = "Read original"
)

// Message is the webhook request body.
type Message struct {
	Timestamp string       `json:"timestamp,omitempty"`
	Sign      string       `json:"sign,omitempty"`
	MsgType   string       `json:"msg_type"`
	Content   *TextContent `json:"content,omitempty"`
	Card      *Card        `json:"card,omitempty"`
}

type TextContent struct {
	Text string `json:"text"`
}

type Card struct {
	Config   CardConfig `json:"config"`
	Header   CardHeader `json:"header"`
	Elements []Element  `json:"elements"`
}

type CardConfig struct {
	WideScreenMode bool `json:"wide_screen_mode"`
}

type CardHeader struct {
	Title    Text   `json:"title"`
	Template string `json:"template,omitempty"`
}

type Text struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

// Element is one card block. Which fields are set depends on Tag.
type Element struct {
	Tag      string   `json:"tag"`
	Text     *Text    `json:"text,omitempty"`
	Actions  []Action `json:"actions,omitempty"`
	Elements []Text   `json:"elements,omitempty"`
}

type Action struct {
	Tag  string `json:"tag"`
	Text Text   `json:"text"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

// BuildCard renders a digest as an interactive card: a dated header, then a
// display block, a link button and a divider per item, then a footer note.
func BuildCard(title string, d digest.Digest) Card {
	elements := make([]Element, 0, d.Len()*3+1)

	for _, item := range d.Items {
		elements = append(elements,
			displayBlock(item),
			actionBlock(item),
			Element{Tag: TagDivider},
		)
	}

	elements = append(elements, Element{
		Tag: TagNote,
		Elements: []Text{{
			Tag:     TagPlainText,
			Content: footerText(d),
		}},
	})

	return Card{
		Config: CardConfig{WideScreenMode: true},
		Header: CardHeader{
			Title: Text{
				Tag:     TagPlainText,
				Content: HeaderTitle(title, d.Date),
			},
			Template: headerTemplate,
		},
		Elements: elements,
	}
}

func HeaderTitle(title string, date time.Time) string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", strings.TrimSpace(title), date.Format(dateLayout)))
}

// NoticeText is sent instead of a card when nothing was kept.
func NoticeText(title string, date time.Time) string {
	return HeaderTitle(title, date) + "\nNo new articles matched today."
}

func displayBlock(item digest.Item) Element {
	var b strings.Builder
	b.WriteString("**")
	b.WriteString(markdown.EscapeLark(item.Title))
	b.WriteString("**")
	if item.Summary != "" {
		b.WriteString("\n")
		b.WriteString(markdown.EscapeLark(item.Summary))
	}

	return Element{
		Tag:  TagDiv,
		Text: &Text{Tag: TagLarkMD, Content: b.String()},
	}
}

func actionBlock(item digest.Item) Element {
	return Element{
		Tag: TagAction,
		Actions: []Action{{
			Tag:  TagButton,
			Text: Text{Tag: TagPlainText, Content: readOriginalLabel},
			URL:  item.Link,
			Type: "default",
		}},
	}
}

func footerText(d digest.Digest) string {
	sources := d.Sources()
	if len(sources) == 0 {
		return fmt.Sprintf("%d articles", d.Len())
	}

	return fmt.Sprintf("%d articles from %s", d.Len(), strings.Join(sources, ", "))
}
