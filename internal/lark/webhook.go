package lark

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"larkdigest/internal/digest"
)

const maxResponseBodyBytes = 64 << 10

// ErrRejected means the webhook answered but refused the message.
var ErrRejected = errors.New("webhook rejected message")

type ClientConfig struct {
	WebhookURL string
	// Secret enables signed requests for bots with signature verification on.
	Secret  string
	Timeout time.Duration
}

// Client posts messages to a Lark (Feishu) custom bot webhook. Every send is
// a single POST; failures are returned and never retried.
type Client struct {
	webhookURL string
	secret     string
	httpClient *http.Client
	now        func() time.Time
	log        *slog.Logger
}

type webhookResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func NewClient(cfg ClientConfig, log *slog.Logger) *Client {
	return &Client{
		webhookURL: strings.TrimSpace(cfg.WebhookURL),
		secret:     strings.TrimSpace(cfg.Secret),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		now:        time.Now,
		log:        log,
	}
}

func (c *Client) SendCard(ctx context.Context, card Card) error {
	return c.send(ctx, Message{MsgType: MsgTypeInteractive, Card: &card})
}

func (c *Client) SendText(ctx context.Context, text string) error {
	return c.send(ctx, Message{MsgType: MsgTypeText, Content: &TextContent{Text: text}})
}

func (c *Client) send(ctx context.Context, msg Message) error {
	if c.secret != "" {
		timestamp := c.now().Unix()
		sign, err := Sign(c.secret, timestamp)
		if err != nil {
			return fmt.Errorf("sign message: %w", err)
		}
		msg.Timestamp = strconv.FormatInt(timestamp, 10)
		msg.Sign = sign
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req) //nolint:gosec // Webhook URL comes from configuration.
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			c.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"operation", "send",
				"msgType", msg.MsgType)
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return fmt.Errorf("read response (status = %d): %w", resp.StatusCode, err)
	}

	c.log.DebugContext(ctx, "Webhook responded",
		"status", resp.StatusCode,
		"msgType", msg.MsgType,
		"body", string(respBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("do request: unexpected status: %d (body = %s)", resp.StatusCode, respBody)
	}

	var parsed webhookResponse
	if len(bytes.TrimSpace(respBody)) > 0 {
		if err = json.Unmarshal(respBody, &parsed); err != nil {
			c.log.WarnContext(ctx, "Unexpected webhook response body",
				"error", err,
				"status", resp.StatusCode,
				"body", string(respBody))

			return nil
		}
	}

	if parsed.Code != 0 {
		return fmt.Errorf("%w (code = %d, msg = %s)", ErrRejected, parsed.Code, parsed.Msg)
	}

	return nil
}

// Sign computes the custom bot signature: HMAC-SHA256 keyed with
// "timestamp\nsecret" over an empty message, base64 encoded.
func Sign(secret string, timestamp int64) (string, error) {
	key := strconv.FormatInt(timestamp, 10) + "\n" + secret

	h := hmac.New(sha256.New, []byte(key))
	if _, err := h.Write(nil); err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

// Notifier delivers digests as cards and notices as plain text.
type Notifier struct {
	client *Client
	title  string
}

func NewNotifier(client *Client, title string) *Notifier {
	return &Notifier{client: client, title: title}
}

func (n *Notifier) Name() string {
	return "lark"
}

func (n *Notifier) SendDigest(ctx context.Context, d digest.Digest) error {
	return n.client.SendCard(ctx, BuildCard(n.title, d))
}

func (n *Notifier) SendNotice(ctx context.Context, text string) error {
	return n.client.SendText(ctx, text)
}
