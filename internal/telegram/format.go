package telegram

import (
	"fmt"
	"strings"

	"larkdigest/internal/digest"
	"larkdigest/internal/markdown"
)

const (
	telegramMessageMaxLength = 4096
	dateLayout               = "2006-01-02"
)

// FormatDigest renders a digest as MarkdownV2 messages grouped by source,
// starting a new message whenever the next block would exceed Telegram's limit.
func FormatDigest(title string, d digest.Digest) []string {
	if d.Empty() {
		return nil
	}

	heading := markdown.EscapeV2(strings.TrimSpace(fmt.Sprintf("%s %s", title, d.Date.Format(dateLayout))))
	header := fmt.Sprintf("📰 *%s*\n\n", heading)
	continuedHeader := fmt.Sprintf("📰 *%s \\(continue\\)*\n\n", heading)

	var messages []string
	var currentMessage strings.Builder

	currentMessage.WriteString(header)
	headerLength := currentMessage.Len()

	groups := make(map[string][]digest.Item)
	for _, item := range d.Items {
		groups[item.Source] = append(groups[item.Source], item)
	}

	for _, source := range d.Sources() {
		items := groups[source]

		feedHeader := sourceHeader(source, items[0].SourceURL)
		firstBulletPoint := bulletPoint(items[0])

		if currentMessage.Len()+len(feedHeader)+len(firstBulletPoint) > telegramMessageMaxLength &&
			currentMessage.Len() > headerLength {
			messages = append(messages, currentMessage.String())
			currentMessage.Reset()
			currentMessage.WriteString(continuedHeader)
		}

		currentMessage.WriteString(feedHeader)

		for _, item := range items {
			bullet := bulletPoint(item)

			if currentMessage.Len()+len(bullet) > telegramMessageMaxLength {
				messages = append(messages, currentMessage.String())
				currentMessage.Reset()
				currentMessage.WriteString(continuedHeader)
				currentMessage.WriteString(feedHeader)
			}

			currentMessage.WriteString(bullet)
		}
	}

	if currentMessage.Len() > headerLength {
		messages = append(messages, currentMessage.String())
	}

	return messages
}

func sourceHeader(source string, sourceURL string) string {
	if sourceURL == "" {
		return fmt.Sprintf("📌 *%s*\n\n", markdown.EscapeV2(source))
	}

	return fmt.Sprintf("📌 *[%s](%s)*\n\n", markdown.EscapeV2(source), escapeURL(sourceURL))
}

func bulletPoint(item digest.Item) string {
	return fmt.Sprintf("– [%s](%s)\n%s\n\n",
		markdown.EscapeV2(item.Title),
		escapeURL(item.Link),
		markdown.EscapeV2(item.Summary))
}

// escapeURL escapes the characters MarkdownV2 reserves inside (...) link targets.
func escapeURL(raw string) string {
	return strings.NewReplacer(`\`, `\\`, `)`, `\)`).Replace(raw)
}
