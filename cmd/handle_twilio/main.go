package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/City-Bureau/intakechat/pkg/app"
	"github.com/City-Bureau/intakechat/pkg/config"
	"github.com/City-Bureau/intakechat/pkg/logutil"
	"github.com/City-Bureau/intakechat/pkg/svc"
)

const emptyResponse = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

type webhook struct {
	twilioChat *svc.TwilioChat
	sns        svc.SNS
	topicArn   string
	endpoint   string
	logger     *slog.Logger
}

func (w *webhook) handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	values, err := url.ParseQuery(request.Body)
	if err != nil {
		return twiml(http.StatusBadRequest), nil
	}

	valid, err := w.twilioChat.CheckSignature(w.endpoint, signature(request.Headers), values)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	if !valid {
		w.logger.Warn("invalid twilio signature")
		return twiml(http.StatusForbidden), nil
	}

	smsWebhook, err := svc.DecodeSMSWebhook(values)
	if err != nil {
		w.logger.Warn("malformed twilio webhook", "error", err)
		return twiml(http.StatusBadRequest), nil
	}

	event := w.twilioChat.HandleSMSWebhook(smsWebhook)
	if err := event.Validate(); err != nil {
		w.logger.Warn("skipping message without sender", "provider_message_id", event.ProviderMessageID)
		return twiml(http.StatusOK), nil
	}
	if err := svc.PublishJSON(ctx, w.sns, w.topicArn, svc.ReceivedMessageFeed, event); err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return twiml(http.StatusOK), nil
}

func signature(headers map[string]string) string {
	for key, value := range headers {
		if strings.EqualFold(key, "X-Twilio-Signature") {
			return value
		}
	}
	return ""
}

func twiml(status int) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		Body:       emptyResponse,
		Headers:    map[string]string{"content-type": "text/xml"},
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
		twilioChat: app.NewTwilioChat(cfg.Twilio),
		sns:        svc.NewSNSClient(),
		topicArn:   cfg.SNS.TopicARN,
		endpoint:   cfg.SNS.GatewayEndpoint,
		logger:     logger,
	}
	lambda.Start(w.handle)
}
