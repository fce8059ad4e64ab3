package pipeline

import (
	"context"
	"fmt"

	"larkdigest/internal/summarizer"
)

const diagnosticProbe = "Google DeepMind is a British-American artificial intelligence research " +
	"laboratory which serves as a subsidiary of Google."

// Diagnose checks the AI service end to end without touching any feed: it
// summarizes a fixed sentence and posts the outcome, success or error, as a
// plain-text report. It returns the number of notifiers that failed.
func (p *Pipeline) Diagnose(ctx context.Context, title string) int {
	result, err := p.summarizer.Summarize(ctx, summarizer.Input{
		Title: "Diagnostics",
		Text:  diagnosticProbe,
	})
	if err != nil {
		p.log.ErrorContext(ctx, "Diagnostic summary failed",
			"error", err)

		result = "AI error: " + err.Error()
	}

	text := fmt.Sprintf("🧪 %s AI diagnostics\nResult: %s", title, result)

	failures := 0
	for _, n := range p.notifiers {
		if sendErr := n.SendNotice(ctx, text); sendErr != nil {
			failures++
			p.log.ErrorContext(ctx, "Failed to deliver diagnostics",
				"error", sendErr,
				"notifier", n.Name())
		}
	}

	return failures
}
