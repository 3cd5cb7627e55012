package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yourorg/motor-stats/internal/types"
)

// Channel is one outbound announcement target.
type Channel struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// Message announces a post.
type Message struct {
	PostID string `json:"post_id"`
	Text   string `json:"text"`
	Link   string `json:"link"`
}

// Ledger remembers which channels already carry a post.
type Ledger interface {
	Published(ctx context.Context, postID, channel string) (bool, error)
	MarkPublished(ctx context.Context, postID, channel string) error
}

// ChannelError is a non-2xx answer from a channel webhook.
type ChannelError struct {
	Channel string
	Status  int
	Body    string
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("publish %s: status %d: %s", e.Channel, e.Status, e.Body)
}

func (e *ChannelError) StatusCode() int { return e.Status }

// Webhooks posts messages to every enabled channel.
type Webhooks struct {
	Channels []Channel
	Ledger   Ledger
	Client   *http.Client
}

func NewWebhooks(channels []Channel, ledger Ledger, hc *http.Client) *Webhooks {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Webhooks{Channels: channels, Ledger: ledger, Client: hc}
}

// Publish sends m to each enabled channel not yet in the ledger. The first
// failing channel stops the run; channels already sent stay recorded so a
// retry resumes where this attempt stopped.
func (w *Webhooks) Publish(ctx context.Context, m Message) (types.PublishResult, error) {
	var res types.PublishResult
	for _, ch := range w.Channels {
		if !ch.Enabled {
			continue
		}
		if w.Ledger != nil {
			done, err := w.Ledger.Published(ctx, m.PostID, ch.Name)
			if err != nil {
				return res, fmt.Errorf("read publish ledger: %w", err)
			}
			if done {
				res.Skipped = append(res.Skipped, ch.Name)
				continue
			}
		}
		if err := w.send(ctx, ch, m); err != nil {
			return res, err
		}
		if w.Ledger != nil {
			if err := w.Ledger.MarkPublished(ctx, m.PostID, ch.Name); err != nil {
				return res, fmt.Errorf("write publish ledger: %w", err)
			}
		}
		res.Channels = append(res.Channels, ch.Name)
	}
	return res, nil
}

func (w *Webhooks) send(ctx context.Context, ch Channel, m Message) error {
	if ch.URL == "" {
		return errors.New("publish " + ch.Name + ": empty webhook url")
	}
	body, err := json.Marshal(m)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ch.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("publish %s: %w", ch.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &ChannelError{Channel: ch.Name, Status: resp.StatusCode, Body: string(b)}
	}
	return nil
}
