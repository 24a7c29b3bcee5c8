package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/City-Bureau/intakechat/pkg/app"
	"github.com/City-Bureau/intakechat/pkg/bot"
	"github.com/City-Bureau/intakechat/pkg/chat"
	"github.com/City-Bureau/intakechat/pkg/svc"
)

type consumer struct {
	engine *bot.Engine
	logger *slog.Logger
}

// handle runs each received message through the engine. Storage failures
// are returned so SNS retries the delivery, records that can never succeed
// are logged and dropped.
func (c *consumer) handle(ctx context.Context, request events.SNSEvent) error {
	for _, record := range request.Records {
		feed, ok := svc.FeedOf(record.SNS.MessageAttributes)
		if !ok {
			c.logger.Warn("feed not present in SNS message", "sns_message_id", record.SNS.MessageID)
			continue
		}
		if feed != svc.ReceivedMessageFeed {
			c.logger.Debug("no handler for feed", "feed", feed)
			continue
		}

		var event chat.InboundEvent
		if err := json.Unmarshal([]byte(record.SNS.Message), &event); err != nil {
			c.logger.Error("malformed inbound event", "error", err)
			continue
		}

		result, err := c.engine.Handle(ctx, event)
		if errors.Is(err, chat.ErrUnresolvedSender) {
			c.logger.Warn("dropping message without sender", "provider_message_id", event.ProviderMessageID)
			continue
		}
		if err != nil {
			return err
		}
		c.logger.Info(
			"handled inbound message",
			"conversation_id", result.ConversationID,
			"duplicate", result.Duplicate,
			"replied", result.Replied,
		)
	}
	return nil
}

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	engine, err := a.Engine()
	if err != nil {
		log.Fatal(err)
	}
	c := &consumer{engine: engine, logger: a.Logger}
	lambda.Start(c.handle)
}
