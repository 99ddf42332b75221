package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"pulsewatch/internals/modules/channel"
)

// SlackNotifier posts to a Slack incoming webhook. The channel destination
// is the webhook URL.
type SlackNotifier struct {
	client *http.Client
}

type slackPayload struct {
	Text string `json:"text"`
}

func NewSlackNotifier(client *http.Client) *SlackNotifier {
	return &SlackNotifier{client: client}
}

func (n *SlackNotifier) Notify(ctx context.Context, ch channel.Channel, msg Message) error {
	body, err := json.Marshal(slackPayload{Text: msg.Text()})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ch.Destination, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned %d", resp.StatusCode)
	}
	return nil
}
