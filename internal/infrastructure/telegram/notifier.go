package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

const (
	defaultAPIBase    = "https://api.telegram.org"
	defaultButtonText = "Read Full Article"
	maxRetryAfter     = time.Minute
)

// Notifier sends news messages to a Telegram chat via bot API.
type Notifier struct {
	apiBase    string
	botToken   string
	chatID     string
	buttonText string
	maxRetries int
	client     *http.Client
	logger     *slog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier validates credentials and builds an HTTP client from cfg.
func NewNotifier(cfg config.TelegramConfig, log *slog.Logger) (*Notifier, error) {
	if strings.TrimSpace(cfg.BotToken) == "" {
		return nil, &domain.ConfigurationError{Field: "notifications.telegram.botToken", Reason: "is required"}
	}
	if strings.TrimSpace(cfg.ChatID) == "" {
		return nil, &domain.ConfigurationError{Field: "notifications.telegram.chatId", Reason: "is required"}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	apiBase := strings.TrimRight(cfg.APIBaseURL, "/")
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	button := cfg.ButtonText
	if button == "" {
		button = defaultButtonText
	}
	if log == nil {
		log = slog.Default()
	}

	return &Notifier{
		apiBase:    apiBase,
		botToken:   cfg.BotToken,
		chatID:     cfg.ChatID,
		buttonText: button,
		maxRetries: max(cfg.MaxRetries, 0),
		client:     &http.Client{Timeout: timeout},
		logger:     log,
	}, nil
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

type inlineButton struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type replyMarkup struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

// SendUpdate posts msg as a photo with caption when it has an image, or as
// a text message otherwise. Callers keep Text within the caption or message
// limit; Telegram rejects longer posts.
func (n *Notifier) SendUpdate(ctx context.Context, msg domain.Message) error {
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("parse_mode", "HTML")

	if msg.ActionURL != "" {
		markup, err := json.Marshal(replyMarkup{
			InlineKeyboard: [][]inlineButton{{{Text: n.buttonText, URL: msg.ActionURL}}},
		})
		if err != nil {
			return &domain.DeliveryError{Err: fmt.Errorf("marshal reply markup: %w", err)}
		}
		form.Set("reply_markup", string(markup))
	}

	method := "sendMessage"
	if msg.Photo != "" {
		method = "sendPhoto"
		form.Set("photo", msg.Photo)
		form.Set("caption", msg.Text)
	} else {
		form.Set("text", msg.Text)
	}

	_, err := n.call(ctx, method, form)
	return err
}

// TestConnection reports whether the bot token is accepted by getMe.
func (n *Notifier) TestConnection(ctx context.Context) bool {
	resp, err := n.call(ctx, "getMe", nil)
	if err != nil {
		n.logger.Warn("telegram connection test failed", "error", err)
		return false
	}
	return resp.OK
}

// retryAfter is a backoff policy that waits for the delay Telegram asked for.
type retryAfter struct {
	wait time.Duration
}

func (r *retryAfter) NextBackOff() time.Duration { return r.wait }

func (r *retryAfter) Reset() { r.wait = 0 }

// call retries only on 429: any other failure may already have posted the message.
func (n *Notifier) call(ctx context.Context, method string, form url.Values) (*apiResponse, error) {
	policy := &retryAfter{}

	var resp *apiResponse
	op := func() error {
		var (
			err        error
			retryDelay time.Duration
		)
		resp, retryDelay, err = n.post(ctx, method, form)
		if err == nil {
			return nil
		}
		var derr *domain.DeliveryError
		if errors.As(err, &derr) && derr.StatusCode == http.StatusTooManyRequests {
			policy.wait = retryDelay
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		n.logger.Warn("telegram rate limited, retrying", "method", method, "wait", wait, "error", err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(n.maxRetries)), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		var derr *domain.DeliveryError
		if errors.As(err, &derr) {
			return nil, err
		}
		return nil, &domain.DeliveryError{Err: err}
	}
	return resp, nil
}

func (n *Notifier) post(ctx context.Context, method string, form url.Values) (*apiResponse, time.Duration, error) {
	endpoint := fmt.Sprintf("%s/bot%s/%s", n.apiBase, n.botToken, method)

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, 0, &domain.DeliveryError{Err: fmt.Errorf("new request: %w", err)}
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, 0, &domain.DeliveryError{Err: fmt.Errorf("do request: %w", redactToken(err, n.botToken))}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, 0, &domain.DeliveryError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	var decoded apiResponse
	_ = json.Unmarshal(raw, &decoded)

	if resp.StatusCode != http.StatusOK || !decoded.OK {
		bodyText := decoded.Description
		if bodyText == "" {
			bodyText = strings.TrimSpace(string(raw))
		}
		wait := time.Duration(decoded.Parameters.RetryAfter) * time.Second
		if wait > maxRetryAfter {
			wait = maxRetryAfter
		}
		return nil, wait, &domain.DeliveryError{StatusCode: resp.StatusCode, Body: bodyText}
	}

	return &decoded, 0, nil
}

// redactToken keeps the bot token out of transport errors, which embed the URL.
func redactToken(err error, token string) error {
	msg := err.Error()
	if token == "" || !strings.Contains(msg, token) {
		return err
	}
	return errors.New(strings.ReplaceAll(msg, token, "<redacted>"))
}
