package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"larkdigest/internal/feed"
	"larkdigest/internal/llm"
)

const (
	// Fallback replaces a summary the service could not produce.
	Fallback = "AI summary unavailable, please read the original"

	// TextMaxChars bounds how much of the entry body is sent for summarizing.
	TextMaxChars = 800

	promptTemplate = `Summarize the article below in %s in one short sentence (about 50 characters).
Keep only the core idea and critical context (names, numbers, dates).
Output exactly one line with no prefix, quotes, emojis or links.

Title: %s
Content: %s`
)

// ErrEmptySummary means the service answered but produced nothing usable.
var ErrEmptySummary = errors.New("summary is empty")

// Input describes the payload for a summary request.
type Input struct {
	Title string
	// Text contains the original plain text to summarise.
	Text string
	// SourceURL identifies the article; it is used as a cache key, not sent.
	SourceURL string
}

// Summarizer produces a single summary for a given input text.
type Summarizer interface {
	Summarize(ctx context.Context, input Input) (string, error)
}

// GeneratorSummarizer builds the summary prompt and sends it to a Generator.
type GeneratorSummarizer struct {
	generator llm.Generator
	language  string
}

func NewGeneratorSummarizer(generator llm.Generator, language string) *GeneratorSummarizer {
	language = strings.TrimSpace(language)
	if language == "" {
		language = "the language of the article"
	}

	return &GeneratorSummarizer{generator: generator, language: language}
}

func (s *GeneratorSummarizer) Summarize(ctx context.Context, input Input) (string, error) {
	title := strings.TrimSpace(input.Title)
	text := strings.TrimSpace(input.Text)
	if text == "" {
		text = title
	}

	prompt := fmt.Sprintf(promptTemplate, s.language, title, feed.Truncate(text, TextMaxChars))

	summary, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}

	summary = strings.Join(strings.Fields(summary), " ")
	if summary == "" {
		return "", ErrEmptySummary
	}

	return summary, nil
}
