package domain

import "time"

// Entry is one article taken from a feed during a single run.
type Entry struct {
	Title     string
	Link      string
	Summary   string
	Published time.Time
	Source    string
	SourceURL string
}
