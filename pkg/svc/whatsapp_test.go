package svc

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookBody = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "1029384756",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "contacts": [{"wa_id": "9779800000001", "profile": {"name": "Sita"}}],
        "messages": [
          {"from": "9779800000001", "id": "wamid.A", "timestamp": "1760000000", "type": "text", "text": {"body": "Australia"}},
          {"from": "9779800000001", "id": "wamid.B", "timestamp": "1760000001", "type": "image"}
        ]
      }
    }, {
      "field": "messages",
      "value": {"messaging_product": "whatsapp", "statuses": [{"id": "wamid.C", "status": "read"}]}
    }]
  }]
}`

func TestWhatsAppWebhookEvents(t *testing.T) {
	webhook, err := ParseWhatsAppWebhook([]byte(webhookBody))
	require.NoError(t, err)

	events := webhook.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "9779800000001", events[0].SenderID)
	assert.Equal(t, "Sita", events[0].SenderName)
	assert.Equal(t, "Australia", events[0].Text)
	assert.Equal(t, "wamid.A", events[0].ProviderMessageID)
	assert.Equal(t, "", events[1].Text)
	assert.Equal(t, "wamid.B", events[1].ProviderMessageID)
}

func TestVerifySubscription(t *testing.T) {
	query := map[string]string{"hub.mode": "subscribe", "hub.verify_token": "secret", "hub.challenge": "1158201444"}
	challenge, ok := VerifySubscription(query, "secret")
	assert.True(t, ok)
	assert.Equal(t, "1158201444", challenge)

	_, ok = VerifySubscription(query, "other")
	assert.False(t, ok)
	_, ok = VerifySubscription(map[string]string{}, "")
	assert.False(t, ok)
}

func TestValidWhatsAppSignature(t *testing.T) {
	body := []byte(webhookBody)
	mac := hmac.New(sha256.New, []byte("app-secret"))
	mac.Write(body)
	header := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	assert.True(t, ValidWhatsAppSignature(body, header, "app-secret"))
	assert.False(t, ValidWhatsAppSignature(body, header, "wrong-secret"))
	assert.False(t, ValidWhatsAppSignature(body, hex.EncodeToString(mac.Sum(nil)), "app-secret"))
	assert.False(t, ValidWhatsAppSignature(body, "sha256=zz", "app-secret"))
}

func TestWhatsAppClientDeliver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v24.0/12345/messages", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))

		var req sendRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "whatsapp", req.MessagingProduct)
		assert.Equal(t, "9779800000001", req.To)
		assert.Equal(t, "hello", req.Text.Body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messaging_product":"whatsapp","messages":[{"id":"wamid.OUT"}]}`))
	}))
	t.Cleanup(srv.Close)

	client := NewWhatsAppClient(srv.URL, "v24.0", "12345", "token")
	id, err := client.Deliver(context.Background(), "9779800000001", "hello")
	require.NoError(t, err)
	assert.Equal(t, "wamid.OUT", id)
}

func TestWhatsAppClientDeliverGraphError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Error validating access token","code":190}}`))
	}))
	t.Cleanup(srv.Close)

	client := NewWhatsAppClient(srv.URL, "v24.0", "12345", "expired")
	_, err := client.Deliver(context.Background(), "9779800000001", "hello")
	assert.EqualError(t, err, "whatsapp error 190: Error validating access token")
}

func TestWhatsAppClientDeliverUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	client := NewWhatsAppClient(srv.URL, "v24.0", "12345", "token")
	_, err := client.Deliver(context.Background(), "9779800000001", "hello")
	assert.Error(t, err)
}
