package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/City-Bureau/intakechat/pkg/mocks"
	"github.com/City-Bureau/intakechat/pkg/svc"
)

const payload = `{"object":"whatsapp_business_account","entry":[{"id":"1","changes":[{"field":"messages","value":{
"messaging_product":"whatsapp",
"contacts":[{"wa_id":"9779800000001","profile":{"name":"Sita"}}],
"messages":[{"from":"9779800000001","id":"wamid.A","timestamp":"1760000000","type":"text","text":{"body":"Australia"}}]}}]}]}`

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte("app-secret"))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func newWebhook(sns svc.SNS) *webhook {
	return &webhook{
		sns:         sns,
		topicArn:    "arn:topic",
		verifyToken: "verify",
		appSecret:   "app-secret",
		logger:      slog.Default(),
	}
}

func TestVerifyHandshake(t *testing.T) {
	w := newWebhook(&mocks.SNSMock{})
	res, err := w.handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodGet,
		QueryStringParameters: map[string]string{
			"hub.mode":         "subscribe",
			"hub.verify_token": "verify",
			"hub.challenge":    "42",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "42", res.Body)

	res, err = w.handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		QueryStringParameters: map[string]string{"hub.verify_token": "nope"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestPublishesInboundEvents(t *testing.T) {
	snsMock := &mocks.SNSMock{}
	snsMock.On(
		"Publish",
		`{"senderId":"9779800000001","senderName":"Sita","text":"Australia","providerMessageId":"wamid.A"}`,
		"arn:topic",
		svc.ReceivedMessageFeed,
	).Return(nil).Once()

	res, err := newWebhook(snsMock).handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Headers:    map[string]string{"x-hub-signature-256": sign(payload)},
		Body:       payload,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	snsMock.AssertExpectations(t)
}

func TestRejectsBadSignature(t *testing.T) {
	snsMock := &mocks.SNSMock{}
	res, err := newWebhook(snsMock).handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Headers:    map[string]string{"X-Hub-Signature-256": "sha256=00"},
		Body:       payload,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	snsMock.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestPublishFailureIsRetried(t *testing.T) {
	snsMock := &mocks.SNSMock{}
	snsMock.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("throttled"))

	_, err := newWebhook(snsMock).handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Headers:    map[string]string{"X-Hub-Signature-256": sign(payload)},
		Body:       payload,
	})
	assert.EqualError(t, err, "throttled")
}

func TestMalformedPayload(t *testing.T) {
	body := "not json"
	res, err := newWebhook(&mocks.SNSMock{}).handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Headers:    map[string]string{"X-Hub-Signature-256": sign(body)},
		Body:       body,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}
