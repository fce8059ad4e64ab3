package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"larkdigest/internal/domain"

	"github.com/mmcdole/gofeed"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"

// ReaderConfig controls how many entries a source yields and how fresh they must be.
type ReaderConfig struct {
	// MaxEntries is the number of leading items kept per source.
	MaxEntries int
	// RecencyWindow drops dated entries older than now-RecencyWindow. Zero disables it.
	RecencyWindow time.Duration
	// Timeout bounds a single feed request.
	Timeout time.Duration
}

type Reader struct {
	client    *http.Client
	libParser *gofeed.Parser
	cfg       ReaderConfig
	now       func() time.Time
	log       *slog.Logger
}

func NewReader(cfg ReaderConfig, log *slog.Logger) *Reader {
	client := &http.Client{Timeout: cfg.Timeout}

	libParser := gofeed.NewParser()
	libParser.Client = client
	libParser.UserAgent = userAgent

	return &Reader{
		client:    client,
		libParser: libParser,
		cfg:       cfg,
		now:       time.Now,
		log:       log,
	}
}

// Read fetches feedURL and returns its first MaxEntries items in source order.
func (r *Reader) Read(ctx context.Context, feedURL string) ([]domain.Entry, error) {
	feedURL = strings.TrimSpace(feedURL)

	if ok, slug := isTelegramChannelURL(feedURL); ok {
		return r.readTelegramChannel(ctx, slug)
	}

	parsed, err := r.libParser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed (URL = %s): %w", feedURL, err)
	}

	source := strings.TrimSpace(parsed.Title)
	if source == "" {
		r.log.WarnContext(ctx, "Empty feed title",
			"feedURL", feedURL,
			"fallbackTitle", feedURL)

		source = feedURL
	}

	items := parsed.Items
	if r.cfg.MaxEntries > 0 && len(items) > r.cfg.MaxEntries {
		items = items[:r.cfg.MaxEntries]
	}

	var cutoff time.Time
	if r.cfg.RecencyWindow > 0 {
		cutoff = r.now().Add(-r.cfg.RecencyWindow)
	}

	entries := make([]domain.Entry, 0, len(items))
	for _, item := range items {
		entry, ok := r.parseItem(ctx, feedURL, source, cutoff, item)
		if !ok {
			continue
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

func (r *Reader) parseItem(
	ctx context.Context,
	feedURL string,
	source string,
	cutoff time.Time,
	item *gofeed.Item,
) (domain.Entry, bool) {
	if item == nil {
		return domain.Entry{}, false
	}

	var published time.Time
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	title := collapseWhitespace(item.Title)

	if !cutoff.IsZero() && !published.IsZero() && published.Before(cutoff) {
		r.log.DebugContext(ctx, "Skipping feed item outside recency window",
			"feedURL", feedURL,
			"itemTitle", title,
			"published", published,
			"cutoff", cutoff)

		return domain.Entry{}, false
	}

	rawSummary := item.Description
	if strings.TrimSpace(rawSummary) == "" {
		rawSummary = item.Content
	}
	summary := htmlToText(rawSummary)

	link := strings.TrimSpace(item.Link)
	if link == "" {
		link = firstHTTPSURL(item.Content + " " + item.Description)
	}
	if link == "" {
		r.log.WarnContext(ctx, "Skipping feed item with empty URL",
			"feedURL", feedURL,
			"feedTitle", source,
			"itemTitle", title)

		return domain.Entry{}, false
	}

	if title == "" {
		title = link
	}

	return domain.Entry{
		Title:     title,
		Link:      link,
		Summary:   summary,
		Published: published,
		Source:    source,
		SourceURL: feedURL,
	}, true
}
