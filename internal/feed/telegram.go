package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"larkdigest/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

const (
	minPartsForTelegramChannelSlugStartingWithS = 2
	telegramPostTitleMaxChars                   = 80

	telegramHost = "t.me"
)

//nolint:gochecknoglobals // Compiled once, read-only.
var telegramSlugRe = regexp.MustCompile(`^\w{5,32}$`)

type channelItem struct {
	URL       string
	Text      string
	published time.Time
}

func TelegramMessageCanonicalURL(raw string) string {
	return CanonicalURL(raw)
}

func TelegramChannelCanonicalURL(slug string) string {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ""
	}

	return fmt.Sprintf("https://%s/s/%s", telegramHost, slug)
}

func isTelegramChannelURL(raw string) (bool, string) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return false, ""
	}

	if u.Host != telegramHost {
		return false, ""
	}

	path := strings.Trim(u.Path, "/")
	if path == "" {
		return false, ""
	}

	parts := strings.Split(path, "/")

	var slug string

	switch parts[0] {
	case "s":
		if len(parts) < minPartsForTelegramChannelSlugStartingWithS {
			return false, ""
		}
		slug = parts[1]
	default:
		slug = parts[0]
	}

	slug = strings.TrimSpace(slug)

	if !telegramSlugRe.MatchString(slug) {
		return false, ""
	}

	return true, slug
}

// readTelegramChannel scrapes the public web preview of a channel, since
// Telegram channels do not publish a syndication feed.
func (r *Reader) readTelegramChannel(
	ctx context.Context,
	slug string,
) ([]domain.Entry, error) {
	canonicalURL := TelegramChannelCanonicalURL(slug)
	if canonicalURL == "" {
		return nil, errors.New("slug is empty")
	}

	items, title, err := r.fetchTelegramChannelPosts(ctx, canonicalURL)
	if err != nil {
		return nil, fmt.Errorf("fetch Telegram channel posts (slug = %s): %w", slug, err)
	}

	if title == "" {
		r.log.WarnContext(ctx, "Empty Telegram channel title",
			"canonicalURL", canonicalURL,
			"slug", slug)

		title = canonicalURL
	}

	var cutoff time.Time
	if r.cfg.RecencyWindow > 0 {
		cutoff = r.now().Add(-r.cfg.RecencyWindow)
	}

	// The preview lists the oldest post first; feeds list the newest first.
	entries := make([]domain.Entry, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		if r.cfg.MaxEntries > 0 && len(entries) == r.cfg.MaxEntries {
			break
		}

		item := items[i]
		if !cutoff.IsZero() && !item.published.IsZero() && item.published.Before(cutoff) {
			continue
		}

		entries = append(entries, domain.Entry{
			Title:     telegramPostTitle(item),
			Link:      item.URL,
			Summary:   collapseWhitespace(item.Text),
			Published: item.published,
			Source:    title,
			SourceURL: canonicalURL,
		})
	}

	return entries, nil
}

func (r *Reader) fetchTelegramChannelPosts(
	ctx context.Context,
	canonicalURL string,
) ([]channelItem, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, canonicalURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req) //nolint:gosec // Telegram URL
	if err != nil {
		return nil, "", fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			r.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"canonicalURL", canonicalURL,
				"operation", "fetchTelegramChannelPosts")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("do request: unexpected status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("create document from reader: %w", err)
	}

	items, title := r.parseTelegramChannelDocument(ctx, doc)

	return items, title, nil
}

func (r *Reader) parseTelegramChannelDocument(
	ctx context.Context,
	doc *goquery.Document,
) ([]channelItem, string) {
	var items []channelItem

	doc.Find("a.tgme_widget_message_date").Each(func(_ int, s *goquery.Selection) {
		item, processErr := processFoundDocItem(s)
		if processErr != nil {
			r.log.WarnContext(ctx, "Skipping Telegram post",
				"error", processErr)

			return
		}

		items = append(items, item)
	})

	var title string

	if content, ok := doc.Find("meta[property='og:title']").Attr("content"); ok {
		title = strings.TrimSpace(content)
	}

	if title == "" {
		title = strings.TrimSpace(doc.Find(".tgme_channel_info_header_title").Text())
	}

	return items, title
}

func processFoundDocItem(s *goquery.Selection) (channelItem, error) {
	href, ok := s.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return channelItem{}, errors.New("href empty")
	}

	href = TelegramMessageCanonicalURL(href)

	var textBuilder strings.Builder
	message := s.ParentsFiltered(".tgme_widget_message").First()
	message.Find(".tgme_widget_message_text, .tgme_widget_message_caption").Each(
		func(_ int, inner *goquery.Selection) {
			inner.Find("br").Each(func(_ int, br *goquery.Selection) {
				br.ReplaceWithHtml("\n")
			})
			fragment := strings.TrimSpace(inner.Text())
			if fragment == "" {
				return
			}
			if textBuilder.Len() > 0 {
				textBuilder.WriteString("\n")
			}
			textBuilder.WriteString(fragment)
		},
	)

	var published time.Time
	datetime := strings.TrimSpace(s.Find("time").AttrOr("datetime", ""))

	if datetime != "" {
		parsed, err := time.Parse(time.RFC3339, datetime)
		if err != nil {
			return channelItem{}, fmt.Errorf("parse datetime: %w", err)
		}
		published = parsed
	}

	return channelItem{
		URL:       href,
		Text:      strings.TrimSpace(textBuilder.String()),
		published: published,
	}, nil
}

// telegramPostTitle uses the first line of the post since channel posts have no title.
func telegramPostTitle(item channelItem) string {
	firstLine, _, _ := strings.Cut(strings.TrimSpace(item.Text), "\n")
	firstLine = collapseWhitespace(firstLine)
	if firstLine == "" {
		return item.URL
	}

	runes := []rune(firstLine)
	if len(runes) <= telegramPostTitleMaxChars {
		return firstLine
	}

	return strings.TrimSpace(string(runes[:telegramPostTitleMaxChars])) + "..."
}
