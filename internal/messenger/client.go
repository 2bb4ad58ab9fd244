package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"exam-bot-service/internal/domain"
)

// DefaultAPIURL is the Graph API send endpoint.
const DefaultAPIURL = "https://graph.facebook.com/v19.0/me/messages"

// Client sends messages through the platform's Graph API. Delivery is
// best-effort: callers log errors and move on, no retries.
type Client struct {
	apiURL      string
	accessToken string
	httpClient  *http.Client
}

func NewClient(apiURL, accessToken string) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		apiURL:      apiURL,
		accessToken: accessToken,
		httpClient:  http.DefaultClient,
	}
}

// Wire shapes for the send call.
type sendRequest struct {
	Recipient     recipient   `json:"recipient"`
	MessagingType string      `json:"messaging_type"`
	Message       sendMessage `json:"message"`
}

type recipient struct {
	ID string `json:"id"`
}

type sendMessage struct {
	Text         string       `json:"text"`
	QuickReplies []quickReply `json:"quick_replies,omitempty"`
}

type quickReply struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// Send posts one reply to the messaging endpoint, authenticating with the
// access token as a query parameter.
func (c *Client) Send(ctx context.Context, recipientID string, msg domain.OutboundMessage) error {
	payload := sendRequest{
		Recipient:     recipient{ID: recipientID},
		MessagingType: "RESPONSE",
		Message:       sendMessage{Text: msg.Text},
	}
	for _, b := range msg.Buttons {
		payload.Message.QuickReplies = append(payload.Message.QuickReplies, quickReply{
			Type:    "postback",
			Title:   b.Title,
			Payload: b.Payload,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	endpoint := c.apiURL + "?access_token=" + url.QueryEscape(c.accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("send message: endpoint returned %s", resp.Status)
	}
	return nil
}
