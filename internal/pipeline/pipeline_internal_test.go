package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"larkdigest/internal/digest"
	"larkdigest/internal/domain"
	"larkdigest/internal/lark"
	"larkdigest/internal/summarizer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

type stubReader struct {
	entries map[string][]domain.Entry
	errs    map[string]error
	calls   []string
}

func (s *stubReader) Read(_ context.Context, feedURL string) ([]domain.Entry, error) {
	s.calls = append(s.calls, feedURL)
	if err := s.errs[feedURL]; err != nil {
		return nil, err
	}

	return s.entries[feedURL], nil
}

type stubClassifier struct {
	decisions map[string]bool
	errs      map[string]error
	calls     []string
}

func (s *stubClassifier) Relevant(_ context.Context, entry domain.Entry) (bool, error) {
	s.calls = append(s.calls, entry.Title)
	if err := s.errs[entry.Title]; err != nil {
		return false, err
	}

	return s.decisions[entry.Title], nil
}

type stubSummarizer struct {
	summaries map[string]string
	errs      map[string]error
	calls     []string
}

func (s *stubSummarizer) Summarize(_ context.Context, input summarizer.Input) (string, error) {
	s.calls = append(s.calls, input.Title)
	if err := s.errs[input.Title]; err != nil {
		return "", err
	}

	if summary, ok := s.summaries[input.Title]; ok {
		return summary, nil
	}

	return "ok", nil
}

type recordingNotifier struct {
	name    string
	err     error
	digests []digest.Digest
	notices []string
}

func (r *recordingNotifier) Name() string {
	return r.name
}

func (r *recordingNotifier) SendDigest(_ context.Context, d digest.Digest) error {
	r.digests = append(r.digests, d)

	return r.err
}

func (r *recordingNotifier) SendNotice(_ context.Context, text string) error {
	r.notices = append(r.notices, text)

	return r.err
}

func newEntry(title string, feedURL string) domain.Entry {
	return domain.Entry{
		Title:     title,
		Link:      "https://example.com/" + title,
		Summary:   "body of " + title,
		Source:    "Source " + feedURL,
		SourceURL: feedURL,
	}
}

func newTestPipeline(
	feedURLs []string,
	reader Reader,
	classifier Classifier,
	s summarizer.Summarizer,
	notifiers ...Notifier,
) *Pipeline {
	p := New(Config{
		FeedURLs: feedURLs,
		Location: time.UTC,
		Notice: func(date time.Time) string {
			return lark.NoticeText("AI 日报", date)
		},
	}, reader, classifier, s, notifiers, slog.Default())
	p.now = func() time.Time { return fixedNow }

	return p
}

func TestRunContinuesAfterFailedSources(t *testing.T) {
	reader := &stubReader{
		entries: map[string][]domain.Entry{"feed-c": {newEntry("C1", "feed-c")}},
		errs: map[string]error{
			"feed-a": errors.New("unreachable"),
			"feed-b": errors.New("malformed"),
		},
	}
	notifier := &recordingNotifier{name: "rec"}

	p := newTestPipeline([]string{"feed-a", "feed-b", "feed-c"}, reader, nil, &stubSummarizer{}, notifier)
	report := p.Run(context.Background())

	assert.Equal(t, []string{"feed-a", "feed-b", "feed-c"}, reader.calls)
	assert.Equal(t, 3, report.Sources)
	assert.Equal(t, 2, report.FailedSources)
	assert.Equal(t, 1, report.Kept)
	require.Len(t, notifier.digests, 1)
	assert.Equal(t, "C1", notifier.digests[0].Items[0].Title)
}

func TestRunDroppedEntriesAreNotSummarized(t *testing.T) {
	reader := &stubReader{entries: map[string][]domain.Entry{
		"feed": {newEntry("keep", "feed"), newEntry("drop", "feed")},
	}}
	classifier := &stubClassifier{decisions: map[string]bool{"keep": true, "drop": false}}
	s := &stubSummarizer{}
	notifier := &recordingNotifier{name: "rec"}

	report := newTestPipeline([]string{"feed"}, reader, classifier, s, notifier).Run(context.Background())

	assert.Equal(t, []string{"keep", "drop"}, classifier.calls)
	assert.Equal(t, []string{"keep"}, s.calls)
	assert.Equal(t, 1, report.Kept)
	assert.Equal(t, 1, report.Dropped)
	require.Len(t, notifier.digests, 1)
	require.Len(t, notifier.digests[0].Items, 1)
	assert.Equal(t, "keep", notifier.digests[0].Items[0].Title)
}

func TestRunFilterErrorKeepsEntry(t *testing.T) {
	reader := &stubReader{entries: map[string][]domain.Entry{"feed": {newEntry("X", "feed")}}}
	classifier := &stubClassifier{errs: map[string]error{"X": errors.New("quota exceeded")}}
	s := &stubSummarizer{}
	notifier := &recordingNotifier{name: "rec"}

	report := newTestPipeline([]string{"feed"}, reader, classifier, s, notifier).Run(context.Background())

	assert.Equal(t, 1, report.FilterErrors)
	assert.Equal(t, 1, report.Kept)
	assert.Equal(t, []string{"X"}, s.calls)
	require.Len(t, notifier.digests, 1)
	assert.Equal(t, "X", notifier.digests[0].Items[0].Title)
}

func TestRunSummaryErrorUsesFallback(t *testing.T) {
	reader := &stubReader{entries: map[string][]domain.Entry{"feed": {newEntry("A", "feed")}}}
	s := &stubSummarizer{errs: map[string]error{"A": errors.New("service down")}}
	notifier := &recordingNotifier{name: "rec"}

	report := newTestPipeline([]string{"feed"}, reader, nil, s, notifier).Run(context.Background())

	assert.Equal(t, 1, report.SummaryErrors)
	require.Len(t, notifier.digests, 1)
	assert.Equal(t, summarizer.Fallback, notifier.digests[0].Items[0].Summary)
}

func TestRunWithoutFilterKeepsEverything(t *testing.T) {
	reader := &stubReader{entries: map[string][]domain.Entry{
		"feed": {newEntry("A", "feed"), newEntry("B", "feed")},
	}}
	notifier := &recordingNotifier{name: "rec"}

	report := newTestPipeline([]string{"feed"}, reader, nil, &stubSummarizer{}, notifier).Run(context.Background())

	assert.Equal(t, 2, report.Kept)
	assert.Zero(t, report.Dropped)
}

func TestRunIsIdempotent(t *testing.T) {
	newReader := func() *stubReader {
		return &stubReader{entries: map[string][]domain.Entry{
			"feed-1": {newEntry("A", "feed-1"), newEntry("B", "feed-1")},
			"feed-2": {newEntry("C", "feed-2")},
		}}
	}
	classifier := &stubClassifier{decisions: map[string]bool{"A": true, "B": false, "C": true}}
	s := &stubSummarizer{summaries: map[string]string{"A": "summary A", "C": "summary C"}}

	first := &recordingNotifier{name: "first"}
	second := &recordingNotifier{name: "second"}

	newTestPipeline([]string{"feed-1", "feed-2"}, newReader(), classifier, s, first).Run(context.Background())
	newTestPipeline([]string{"feed-1", "feed-2"}, newReader(), classifier, s, second).Run(context.Background())

	require.Len(t, first.digests, 1)
	require.Len(t, second.digests, 1)

	firstJSON, err := json.Marshal(lark.BuildCard("AI 日报", first.digests[0]))
	require.NoError(t, err)
	secondJSON, err := json.Marshal(lark.BuildCard("AI 日报", second.digests[0]))
	require.NoError(t, err)
	assert.Equal(t, firstJSON, secondJSON)
}

func TestRunEmptyDigestSendsNotice(t *testing.T) {
	reader := &stubReader{errs: map[string]error{"feed": errors.New("parse error")}}
	notifier := &recordingNotifier{name: "rec"}

	report := newTestPipeline([]string{"feed"}, reader, nil, &stubSummarizer{}, notifier).Run(context.Background())

	assert.True(t, report.NoticeSent)
	assert.Empty(t, notifier.digests)
	assert.Equal(t, []string{lark.NoticeText("AI 日报", fixedNow)}, notifier.notices)
}

func TestRunDeliveryFailureDoesNotStopOtherNotifiers(t *testing.T) {
	reader := &stubReader{entries: map[string][]domain.Entry{"feed": {newEntry("A", "feed")}}}
	broken := &recordingNotifier{name: "broken", err: errors.New("unreachable")}
	working := &recordingNotifier{name: "working"}

	report := newTestPipeline([]string{"feed"}, reader, nil, &stubSummarizer{}, broken, working).
		Run(context.Background())

	assert.Equal(t, 1, report.DeliveryFailures)
	assert.Len(t, broken.digests, 1)
	assert.Len(t, working.digests, 1)
}

type webhookCall struct {
	MsgType string `json:"msg_type"`
	Card    struct {
		Elements []struct {
			Tag string `json:"tag"`
		} `json:"elements"`
	} `json:"card"`
}

func larkServer(t *testing.T, status int) (*httptest.Server, *[]webhookCall) {
	t.Helper()

	var calls []webhookCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)

		var call webhookCall
		_ = json.Unmarshal(raw, &call)
		calls = append(calls, call)

		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"code":0,"msg":"success"}`)
	}))
	t.Cleanup(srv.Close)

	return srv, &calls
}

func larkNotifier(url string) *lark.Notifier {
	client := lark.NewClient(lark.ClientConfig{WebhookURL: url, Timeout: 5 * time.Second}, slog.Default())

	return lark.NewNotifier(client, "AI 日报")
}

func TestRunTwoSourcesDeliversOneInteractiveCard(t *testing.T) {
	srv, calls := larkServer(t, http.StatusOK)

	reader := &stubReader{entries: map[string][]domain.Entry{
		"feed-1": {newEntry("A", "feed-1")},
		"feed-2": {newEntry("B", "feed-2")},
	}}
	classifier := &stubClassifier{decisions: map[string]bool{"A": true, "B": true}}

	report := newTestPipeline([]string{"feed-1", "feed-2"}, reader, classifier, &stubSummarizer{},
		larkNotifier(srv.URL)).Run(context.Background())

	assert.Equal(t, 2, report.Kept)
	assert.Zero(t, report.DeliveryFailures)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, lark.MsgTypeInteractive, call.MsgType)

	counts := make(map[string]int)
	for _, e := range call.Card.Elements {
		counts[e.Tag]++
	}
	assert.Equal(t, 2, counts[lark.TagDiv])
	assert.Equal(t, 2, counts[lark.TagAction])
	assert.Equal(t, 2, counts[lark.TagDivider])
}

func TestRunWebhookServerErrorCompletes(t *testing.T) {
	srv, calls := larkServer(t, http.StatusInternalServerError)

	reader := &stubReader{entries: map[string][]domain.Entry{"feed": {newEntry("A", "feed")}}}

	report := newTestPipeline([]string{"feed"}, reader, nil, &stubSummarizer{}, larkNotifier(srv.URL)).
		Run(context.Background())

	assert.Equal(t, 1, report.DeliveryFailures)
	assert.Len(t, *calls, 1)
}

func TestDiagnoseReportsResultAndError(t *testing.T) {
	ok := &recordingNotifier{name: "rec"}
	p := newTestPipeline(nil, &stubReader{}, nil,
		&stubSummarizer{summaries: map[string]string{"Diagnostics": "DeepMind is Google's AI lab."}}, ok)

	assert.Zero(t, p.Diagnose(context.Background(), "AI 日报"))
	require.Len(t, ok.notices, 1)
	assert.Contains(t, ok.notices[0], "Result: DeepMind is Google's AI lab.")

	failing := &recordingNotifier{name: "rec"}
	p = newTestPipeline(nil, &stubReader{}, nil,
		&stubSummarizer{errs: map[string]error{"Diagnostics": errors.New("API key not valid")}}, failing)

	assert.Zero(t, p.Diagnose(context.Background(), "AI 日报"))
	require.Len(t, failing.notices, 1)
	assert.Contains(t, failing.notices[0], "AI error: API key not valid")
}
