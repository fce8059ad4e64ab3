package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"larkdigest/internal/config"
	"larkdigest/internal/feed"
	"larkdigest/internal/lark"
	"larkdigest/internal/llm"
	"larkdigest/internal/metrics"
	"larkdigest/internal/pipeline"
	"larkdigest/internal/relevance"
	"larkdigest/internal/scheduler"
	"larkdigest/internal/summarizer"
	"larkdigest/internal/telegram"

	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run())
}

func run() int {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	start := time.Now()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.WarnContext(ctx, "Failed to load .env file",
			"error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.ErrorContext(ctx, "Invalid configuration",
			"error", err)

		return 1
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	generator, err := initGenerator(ctx, cfg)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize AI generator",
			"error", err,
			"provider", cfg.AIProvider)

		return 1
	}
	log.InfoContext(ctx, "AI generator is initialized",
		"provider", cfg.AIProvider)

	notifiers, err := initNotifiers(cfg, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize notifiers",
			"error", err)

		return 1
	}

	var classifier pipeline.Classifier
	if cfg.FilterEnabled {
		classifier = relevance.NewFilter(generator, cfg.InterestProfile)
	}

	reader := feed.NewReader(feed.ReaderConfig{
		MaxEntries:    cfg.EntriesPerFeed,
		RecencyWindow: cfg.RecencyWindow,
		Timeout:       cfg.HTTPTimeout,
	}, log)

	p := pipeline.New(pipeline.Config{
		FeedURLs: cfg.FeedURLs,
		Location: cfg.Location(),
		Notice: func(date time.Time) string {
			return lark.NoticeText(cfg.DigestTitle, date)
		},
	}, reader, classifier, summarizer.NewGeneratorSummarizer(generator, cfg.SummaryLanguage), notifiers, log)

	onReport := reportPusher(cfg, log)

	switch {
	case cfg.Mode == config.ModeDiagnose:
		failures := p.Diagnose(ctx, cfg.DigestTitle)
		log.InfoContext(ctx, "Diagnostics are finished",
			"deliveryFailures", failures,
			"uptimeSeconds", time.Since(start).Seconds())

	case cfg.Schedule != "":
		if err = runScheduled(ctx, p, cfg, onReport, log); err != nil {
			log.ErrorContext(ctx, "Failed to start scheduler",
				"error", err,
				"spec", cfg.Schedule,
				"timezone", cfg.Timezone)

			return 1
		}
		log.InfoContext(ctx, "Exiting...",
			"uptimeSeconds", time.Since(start).Seconds())

	default:
		onReport(ctx, p.Run(ctx))
	}

	return 0
}

func initGenerator(ctx context.Context, cfg config.Config) (llm.Generator, error) {
	switch cfg.AIProvider {
	case config.ProviderOpenAI:
		return llm.NewOpenAIGenerator(cfg.OpenAIAPIKey)
	default:
		return llm.NewGeminiGenerator(ctx, llm.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		})
	}
}

func initNotifiers(cfg config.Config, log *slog.Logger) ([]pipeline.Notifier, error) {
	client := lark.NewClient(lark.ClientConfig{
		WebhookURL: cfg.LarkWebhook,
		Secret:     cfg.LarkSecret,
		Timeout:    cfg.HTTPTimeout,
	}, log)

	notifiers := []pipeline.Notifier{lark.NewNotifier(client, cfg.DigestTitle)}

	if cfg.TelegramEnabled() {
		tg, err := telegram.NewNotifier(cfg.TelegramToken, cfg.TelegramChatID, cfg.DigestTitle, log)
		if err != nil {
			return nil, err
		}

		notifiers = append(notifiers, tg)
	}

	return notifiers, nil
}

func reportPusher(cfg config.Config, log *slog.Logger) func(context.Context, pipeline.Report) {
	if cfg.PushgatewayURL == "" {
		return func(context.Context, pipeline.Report) {}
	}

	recorder := metrics.NewRecorder()

	return func(ctx context.Context, report pipeline.Report) {
		recorder.Observe(report, time.Now())

		if err := recorder.Push(ctx, cfg.PushgatewayURL); err != nil {
			log.ErrorContext(ctx, "Failed to push metrics",
				"error", err,
				"runID", report.RunID)
		}
	}
}

func runScheduled(
	ctx context.Context,
	p *pipeline.Pipeline,
	cfg config.Config,
	onReport func(context.Context, pipeline.Report),
	log *slog.Logger,
) error {
	sched := scheduler.New(ctx, p, scheduler.Config{
		Spec:     cfg.Schedule,
		Location: cfg.Location(),
		OnReport: onReport,
	}, log)

	if err := sched.Start(); err != nil {
		return err
	}
	log.InfoContext(ctx, "Scheduler is started",
		"spec", cfg.Schedule,
		"timezone", cfg.Timezone)

	<-ctx.Done()
	log.InfoContext(ctx, "Shutdown signal is received")

	sched.Stop()
	log.InfoContext(ctx, "Scheduler is stopped")

	return nil
}
