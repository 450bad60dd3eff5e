package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// WecomNotifier posts text messages to a WeCom group-robot webhook.
type WecomNotifier struct {
	WebhookURL    string
	MentionedList []string
	MaxRetries    int
	Backoff       time.Duration
	Client        *http.Client
}

// NewWecomNotifier creates a notifier with 3 attempts and a 1s base backoff.
func NewWecomNotifier(webhookURL string) *WecomNotifier {
	return &WecomNotifier{
		WebhookURL: webhookURL,
		MaxRetries: 3,
		Backoff:    time.Second,
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type wecomText struct {
	Content       string   `json:"content"`
	MentionedList []string `json:"mentioned_list"`
}

type wecomPayload struct {
	MsgType string    `json:"msgtype"`
	Text    wecomText `json:"text"`
}

type wecomResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

func (w *WecomNotifier) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wecom API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	wr := wecomResponse{ErrCode: -1}
	if err := json.Unmarshal(respBody, &wr); err != nil {
		return fmt.Errorf("decode wecom response: %w", err)
	}
	if wr.ErrCode != 0 {
		return fmt.Errorf("wecom errcode=%d errmsg=%s", wr.ErrCode, wr.ErrMsg)
	}
	return nil
}

// SendText posts msg, retrying with exponential backoff between attempts.
func (w *WecomNotifier) SendText(ctx context.Context, msg string) Result {
	if w.WebhookURL == "" {
		return Result{Detail: "missing webhook"}
	}
	mentioned := w.MentionedList
	if mentioned == nil {
		mentioned = []string{}
	}
	body, err := json.Marshal(wecomPayload{
		MsgType: "text",
		Text:    wecomText{Content: msg, MentionedList: mentioned},
	})
	if err != nil {
		return Result{Detail: err.Error()}
	}

	attempts := w.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 1; i <= attempts; i++ {
		if lastErr = w.send(ctx, body); lastErr == nil {
			return Result{OK: true, Detail: fmt.Sprintf("attempt %d", i)}
		}
		if i == attempts {
			break
		}
		backoff := w.Backoff * time.Duration(1<<uint(i-1))
		log.Warn().Err(lastErr).Int("attempt", i).Dur("backoff", backoff).Msg("wecom send failed, retrying")
		select {
		case <-ctx.Done():
			return Result{Detail: ctx.Err().Error()}
		case <-time.After(backoff):
		}
	}
	return Result{Detail: lastErr.Error()}
}
