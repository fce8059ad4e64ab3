package pipeline

import (
	"context"
	"log/slog"
	"time"

	"larkdigest/internal/digest"
	"larkdigest/internal/domain"
	"larkdigest/internal/summarizer"

	"github.com/google/uuid"
)

// Reader yields the leading entries of one feed.
type Reader interface {
	Read(ctx context.Context, feedURL string) ([]domain.Entry, error)
}

// Classifier decides whether an entry is worth keeping.
type Classifier interface {
	Relevant(ctx context.Context, entry domain.Entry) (bool, error)
}

// Notifier delivers the outcome of a run to one destination.
type Notifier interface {
	Name() string
	SendDigest(ctx context.Context, d digest.Digest) error
	SendNotice(ctx context.Context, text string) error
}

// NoticeFunc renders the plain-text message sent when a run kept nothing.
type NoticeFunc func(date time.Time) string

type Config struct {
	FeedURLs []string
	Location *time.Location
	Notice   NoticeFunc
}

// Report counts what happened during one run.
type Report struct {
	RunID            string
	Sources          int
	FailedSources    int
	Entries          int
	Kept             int
	Dropped          int
	FilterErrors     int
	SummaryErrors    int
	DeliveryFailures int
	NoticeSent       bool
	Duration         time.Duration
}

// Pipeline runs fetch → filter → summarize → build → deliver, strictly in
// sequence. It holds no state between runs.
type Pipeline struct {
	cfg        Config
	reader     Reader
	classifier Classifier
	summarizer summarizer.Summarizer
	notifiers  []Notifier
	now        func() time.Time
	log        *slog.Logger
}

// New builds a pipeline. A nil classifier disables relevance filtering.
func New(
	cfg Config,
	reader Reader,
	classifier Classifier,
	s summarizer.Summarizer,
	notifiers []Notifier,
	log *slog.Logger,
) *Pipeline {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &Pipeline{
		cfg:        cfg,
		reader:     reader,
		classifier: classifier,
		summarizer: s,
		notifiers:  notifiers,
		now:        time.Now,
		log:        log,
	}
}

// Run never fails: every error is handled at the source or entry where it
// happened and only shows up in the log and the Report.
func (p *Pipeline) Run(ctx context.Context) Report {
	start := p.now()
	report := Report{RunID: uuid.NewString(), Sources: len(p.cfg.FeedURLs)}
	log := p.log.With("runID", report.RunID)

	log.InfoContext(ctx, "Run is started",
		"sourceCount", report.Sources,
		"filterEnabled", p.classifier != nil)

	builder := digest.NewBuilder(start.In(p.cfg.Location))
	s := summarizer.NewCached(p.summarizer, summarizer.CacheMaxEntries)

	for _, feedURL := range p.cfg.FeedURLs {
		entries, err := p.reader.Read(ctx, feedURL)
		if err != nil {
			report.FailedSources++
			log.ErrorContext(ctx, "Failed to read feed",
				"error", err,
				"feedURL", feedURL)

			continue
		}

		log.InfoContext(ctx, "Feed is read",
			"feedURL", feedURL,
			"entryCount", len(entries))

		for _, entry := range entries {
			report.Entries++

			if !p.keep(ctx, log, entry, &report) {
				report.Dropped++
				continue
			}

			builder.Add(entry, p.summarize(ctx, log, s, entry, &report))
			report.Kept++
		}
	}

	p.deliver(ctx, log, builder.Digest(), &report)

	report.Duration = p.now().Sub(start)

	log.InfoContext(ctx, "Run is finished",
		"entries", report.Entries,
		"kept", report.Kept,
		"dropped", report.Dropped,
		"failedSources", report.FailedSources,
		"filterErrors", report.FilterErrors,
		"summaryErrors", report.SummaryErrors,
		"deliveryFailures", report.DeliveryFailures,
		"durationSeconds", report.Duration.Seconds())

	return report
}

// keep fails open: an entry the service could not classify is kept.
func (p *Pipeline) keep(
	ctx context.Context,
	log *slog.Logger,
	entry domain.Entry,
	report *Report,
) bool {
	if p.classifier == nil {
		return true
	}

	relevant, err := p.classifier.Relevant(ctx, entry)
	if err != nil {
		report.FilterErrors++
		log.WarnContext(ctx, "Failed to classify entry so it is kept",
			"error", err,
			"title", entry.Title,
			"link", entry.Link)

		return true
	}

	if !relevant {
		log.InfoContext(ctx, "Entry is dropped by relevance filter",
			"title", entry.Title,
			"link", entry.Link)
	}

	return relevant
}

// summarize falls back to a fixed text so a kept entry is never lost.
func (p *Pipeline) summarize(
	ctx context.Context,
	log *slog.Logger,
	s summarizer.Summarizer,
	entry domain.Entry,
	report *Report,
) string {
	summary, err := s.Summarize(ctx, summarizer.Input{
		Title:     entry.Title,
		Text:      entry.Summary,
		SourceURL: entry.Link,
	})
	if err != nil {
		report.SummaryErrors++
		log.WarnContext(ctx, "Failed to summarize entry so fallback will be used",
			"error", err,
			"title", entry.Title,
			"link", entry.Link,
			"fallback", true)

		return summarizer.Fallback
	}

	return summary
}

// deliver sends the digest, or the notice when nothing was kept, to every
// notifier once. Failures are logged and counted, never retried.
func (p *Pipeline) deliver(
	ctx context.Context,
	log *slog.Logger,
	d digest.Digest,
	report *Report,
) {
	empty := d.Empty()
	if empty {
		report.NoticeSent = true
	}

	for _, n := range p.notifiers {
		var err error
		if empty {
			err = n.SendNotice(ctx, p.noticeText(d.Date))
		} else {
			err = n.SendDigest(ctx, d)
		}

		if err != nil {
			report.DeliveryFailures++
			log.ErrorContext(ctx, "Failed to deliver",
				"error", err,
				"notifier", n.Name(),
				"itemCount", d.Len())

			continue
		}

		log.InfoContext(ctx, "Delivered",
			"notifier", n.Name(),
			"itemCount", d.Len(),
			"notice", empty)
	}
}

func (p *Pipeline) noticeText(date time.Time) string {
	if p.cfg.Notice == nil {
		return "No new articles matched today."
	}

	return p.cfg.Notice(date)
}
