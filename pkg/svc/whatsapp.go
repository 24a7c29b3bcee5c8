package svc

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/City-Bureau/intakechat/pkg/chat"
)

// DefaultGraphURL is the base URL of the WhatsApp Cloud API
const DefaultGraphURL = "https://graph.facebook.com"

// WhatsAppWebhook is the payload Meta posts for WhatsApp message events
type WhatsAppWebhook struct {
	Object string          `json:"object"`
	Entry  []WhatsAppEntry `json:"entry"`
}

// WhatsAppEntry groups changes for one business account
type WhatsAppEntry struct {
	ID      string           `json:"id"`
	Changes []WhatsAppChange `json:"changes"`
}

// WhatsAppChange is a single change notification
type WhatsAppChange struct {
	Field string        `json:"field"`
	Value WhatsAppValue `json:"value"`
}

// WhatsAppValue carries the messages and sender profiles of a change
type WhatsAppValue struct {
	MessagingProduct string            `json:"messaging_product"`
	Contacts         []WhatsAppContact `json:"contacts"`
	Messages         []WhatsAppMessage `json:"messages"`
}

// WhatsAppContact is the sender profile attached to messages
type WhatsAppContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// WhatsAppMessage is one inbound message
type WhatsAppMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
}

// ParseWhatsAppWebhook decodes a webhook request body
func ParseWhatsAppWebhook(body []byte) (WhatsAppWebhook, error) {
	var webhook WhatsAppWebhook
	err := json.Unmarshal(body, &webhook)
	return webhook, err
}

// Events flattens the webhook into inbound events. Status updates carry no
// messages and produce nothing, non-text messages have an empty body.
func (w WhatsAppWebhook) Events() []chat.InboundEvent {
	var events []chat.InboundEvent
	for _, entry := range w.Entry {
		for _, change := range entry.Changes {
			names := map[string]string{}
			for _, contact := range change.Value.Contacts {
				names[contact.WaID] = contact.Profile.Name
			}
			for _, msg := range change.Value.Messages {
				event := chat.InboundEvent{
					SenderID:          msg.From,
					SenderName:        names[msg.From],
					ProviderMessageID: msg.ID,
				}
				if msg.Text != nil {
					event.Text = msg.Text.Body
				}
				events = append(events, event)
			}
		}
	}
	return events
}

// VerifySubscription answers Meta's webhook verification handshake. It
// returns the challenge to echo when the token matches.
func VerifySubscription(query map[string]string, verifyToken string) (string, bool) {
	if verifyToken == "" || query["hub.verify_token"] != verifyToken {
		return "", false
	}
	if mode, ok := query["hub.mode"]; ok && mode != "subscribe" {
		return "", false
	}
	return query["hub.challenge"], true
}

// ValidWhatsAppSignature checks the X-Hub-Signature-256 header against
// the app secret
func ValidWhatsAppSignature(body []byte, header, appSecret string) bool {
	signature := strings.TrimPrefix(header, "sha256=")
	expected, err := hex.DecodeString(signature)
	if err != nil || signature == header {
		return false
	}
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	return hmac.Equal(expected, mac.Sum(nil))
}

// WhatsAppClient sends text messages through the WhatsApp Cloud API
type WhatsAppClient struct {
	baseURL string
	phoneID string
	token   string
	client  *http.Client
}

// NewWhatsAppClient is a constructor for WhatsAppClient structs
func NewWhatsAppClient(baseURL, version, phoneID, token string) *WhatsAppClient {
	if baseURL == "" {
		baseURL = DefaultGraphURL
	}
	return &WhatsAppClient{
		baseURL: fmt.Sprintf("%s/%s", strings.TrimRight(baseURL, "/"), version),
		phoneID: phoneID,
		token:   token,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type textBody struct {
	Body string `json:"body"`
}

type sendRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// Deliver sends a text message and returns the WhatsApp message id
func (c *WhatsAppClient) Deliver(ctx context.Context, destination, text string) (string, error) {
	reqBody, err := json.Marshal(sendRequest{
		MessagingProduct: "whatsapp",
		To:               destination,
		Type:             "text",
		Text:             textBody{Body: text},
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	var sr sendResponse
	jsonErr := json.Unmarshal(body, &sr)
	if resp.StatusCode != http.StatusOK {
		if jsonErr == nil && sr.Error != nil {
			return "", fmt.Errorf("whatsapp error %d: %s", sr.Error.Code, sr.Error.Message)
		}
		return "", fmt.Errorf("unexpected status code: %d body=%q", resp.StatusCode, string(body))
	}
	if jsonErr != nil {
		return "", fmt.Errorf("failed to decode json: %w body=%q", jsonErr, string(body))
	}
	if len(sr.Messages) == 0 || sr.Messages[0].ID == "" {
		return "", fmt.Errorf("missing message id in response body=%q", string(body))
	}
	return sr.Messages[0].ID, nil
}
