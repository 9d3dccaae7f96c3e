// Package telegram sends bot messages. Delivery is best-effort.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"html"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.telegram.org"
	DefaultTimeout = 10 * time.Second

	// MaxMessageLen is the Bot API limit on message text.
	MaxMessageLen = 4096
)

type Notifier struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

type Option func(*Notifier)

func WithBaseURL(u string) Option {
	return func(n *Notifier) { n.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(n *Notifier) { n.httpClient = hc }
}

func NewNotifier(log *zap.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        log,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// Notify sends an HTML message. A missing token or chat id is a no-op and a
// failed delivery is logged, never returned.
func (n *Notifier) Notify(ctx context.Context, token, chatID, message string) {
	if token == "" || chatID == "" {
		return
	}
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                chatID,
		Text:                  truncate(message, MaxMessageLen),
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		n.log.Error("telegram: encode message", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/bot"+token+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		n.log.Error("telegram: build request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		// the URL carries the bot token; log only the cause
		n.log.Error("telegram: send failed", zap.String("chat_id", chatID), zap.Error(unwrapURLError(err)))
		return
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		n.log.Error("telegram: notification rejected",
			zap.String("chat_id", chatID),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw),
		)
	}
}

// EscapeHTML escapes text for the Bot API HTML parse mode.
func EscapeHTML(s string) string {
	return html.EscapeString(s)
}

const preTruncated = "\n… (truncated)"

// Pre wraps code in an escaped <pre> block of at most limit runes. Oversized code
// is cut before escaping, so neither the block nor an entity is ever left open.
func Pre(code string, limit int) string {
	const open, closing = "<pre>", "</pre>"
	budget := limit - len(open) - len(closing)
	if budget <= 0 {
		return ""
	}
	escaped := EscapeHTML(code)
	if utf8.RuneCountInString(escaped) <= budget {
		return open + escaped + closing
	}

	budget -= utf8.RuneCountInString(preTruncated)
	var b strings.Builder
	used := 0
	for _, r := range code {
		e := EscapeHTML(string(r))
		n := utf8.RuneCountInString(e)
		if used+n > budget {
			break
		}
		b.WriteString(e)
		used += n
	}
	return open + b.String() + preTruncated + closing
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
