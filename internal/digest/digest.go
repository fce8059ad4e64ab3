package digest

import (
	"strings"
	"time"

	"larkdigest/internal/domain"
)

// Item is one kept entry with its generated summary.
type Item struct {
	Title     string
	Summary   string
	Link      string
	Source    string
	SourceURL string
}

// Digest is the ordered set of kept entries of one run.
type Digest struct {
	Date  time.Time
	Items []Item
}

func (d Digest) Len() int {
	return len(d.Items)
}

func (d Digest) Empty() bool {
	return len(d.Items) == 0
}

// Sources lists source titles in order of first appearance.
func (d Digest) Sources() []string {
	seen := make(map[string]struct{})
	var sources []string

	for _, item := range d.Items {
		if _, ok := seen[item.Source]; ok {
			continue
		}

		seen[item.Source] = struct{}{}
		sources = append(sources, item.Source)
	}

	return sources
}

// Builder accumulates items in the order they are added. It never sorts,
// deduplicates or caps.
type Builder struct {
	date  time.Time
	items []Item
}

func NewBuilder(date time.Time) *Builder {
	return &Builder{date: date}
}

func (b *Builder) Add(entry domain.Entry, summary string) {
	b.items = append(b.items, Item{
		Title:     strings.TrimSpace(entry.Title),
		Summary:   strings.TrimSpace(summary),
		Link:      strings.TrimSpace(entry.Link),
		Source:    strings.TrimSpace(entry.Source),
		SourceURL: strings.TrimSpace(entry.SourceURL),
	})
}

func (b *Builder) Len() int {
	return len(b.items)
}

// Digest returns a snapshot; later Adds do not change it.
func (b *Builder) Digest() Digest {
	items := make([]Item, len(b.items))
	copy(items, b.items)

	return Digest{Date: b.date, Items: items}
}
