package main

import (
	"context"
	"encoding/base64"
	"log"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/City-Bureau/intakechat/pkg/config"
	"github.com/City-Bureau/intakechat/pkg/logutil"
	"github.com/City-Bureau/intakechat/pkg/svc"
)

const signatureHeader = "X-Hub-Signature-256"

type webhook struct {
	sns         svc.SNS
	topicArn    string
	verifyToken string
	appSecret   string
	logger      *slog.Logger
}

func (w *webhook) handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	switch request.HTTPMethod {
	case http.MethodGet:
		challenge, ok := svc.VerifySubscription(request.QueryStringParameters, w.verifyToken)
		if !ok {
			w.logger.Warn("webhook verification rejected")
			return respond(http.StatusForbidden, "forbidden"), nil
		}
		return respond(http.StatusOK, challenge), nil
	case http.MethodPost:
		return w.receive(ctx, request)
	default:
		return respond(http.StatusMethodNotAllowed, "method not allowed"), nil
	}
}

func (w *webhook) receive(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	body := []byte(request.Body)
	if request.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(request.Body)
		if err != nil {
			return respond(http.StatusBadRequest, "bad request"), nil
		}
		body = decoded
	}

	if w.appSecret != "" && !svc.ValidWhatsAppSignature(body, header(request.Headers, signatureHeader), w.appSecret) {
		w.logger.Warn("invalid webhook signature")
		return respond(http.StatusUnauthorized, "unauthorized"), nil
	}

	payload, err := svc.ParseWhatsAppWebhook(body)
	if err != nil {
		w.logger.Warn("malformed webhook payload", "error", err)
		return respond(http.StatusBadRequest, "bad request"), nil
	}

	for _, event := range payload.Events() {
		if err := event.Validate(); err != nil {
			w.logger.Warn("skipping message without sender", "provider_message_id", event.ProviderMessageID)
			continue
		}
		// Publish failures are returned so Meta redelivers the whole batch,
		// the ingestion gate drops the messages that already went through
		if err := svc.PublishJSON(ctx, w.sns, w.topicArn, svc.ReceivedMessageFeed, event); err != nil {
			return events.APIGatewayProxyResponse{}, err
		}
	}
	return respond(http.StatusOK, "EVENT_RECEIVED"), nil
}

func header(headers map[string]string, name string) string {
	for key, value := range headers {
		if strings.EqualFold(key, name) {
			return value
		}
	}
	return ""
}

func respond(status int, body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		Body:       body,
		Headers:    map[string]string{"content-type": "text/plain"},
		StatusCode: status,
	}
}

func main() {
	cfg := config.Load()
	logger, err := logutil.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatal(err)
	}
	w := &webhook{
		sns:         svc.NewSNSClient(),
		topicArn:    cfg.SNS.TopicARN,
		verifyToken: cfg.WhatsApp.VerifyToken,
		appSecret:   cfg.WhatsApp.AppSecret,
		logger:      logger,
	}
	lambda.Start(w.handle)
}
