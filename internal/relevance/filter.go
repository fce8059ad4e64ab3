package relevance

import (
	"context"
	"fmt"
	"strings"

	"larkdigest/internal/domain"
	"larkdigest/internal/feed"
	"larkdigest/internal/llm"
)

// SummaryMaxChars bounds how much of the entry body is shown to the model.
const SummaryMaxChars = 500

const promptTemplate = `You are screening news articles for one reader.

Reader's interest profile:
%s

Article title: %s
Article summary: %s

Does this article match the reader's interests? Answer with a single word: Yes or No.`

// Filter asks a Generator whether an entry matches a fixed interest profile.
type Filter struct {
	generator llm.Generator
	profile   string
}

func NewFilter(generator llm.Generator, profile string) *Filter {
	return &Filter{
		generator: generator,
		profile:   strings.TrimSpace(profile),
	}
}

// Relevant reports whether the reply contains "yes" in any letter case. Any
// other reply is a drop. A service error is returned to the caller, which
// decides what a failed classification means.
func (f *Filter) Relevant(ctx context.Context, entry domain.Entry) (bool, error) {
	prompt := fmt.Sprintf(promptTemplate,
		f.profile,
		strings.TrimSpace(entry.Title),
		feed.Truncate(strings.TrimSpace(entry.Summary), SummaryMaxChars))

	reply, err := f.generator.Generate(ctx, prompt)
	if err != nil {
		return false, fmt.Errorf("classify entry: %w", err)
	}

	return IsYes(reply), nil
}

func IsYes(reply string) bool {
	return strings.Contains(strings.ToLower(reply), "yes")
}
