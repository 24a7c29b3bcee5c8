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

type sender struct {
	agent  *bot.Agent
	logger *slog.Logger
}

func (s *sender) handle(ctx context.Context, request events.SNSEvent) error {
	for _, record := range request.Records {
		if feed, ok := svc.FeedOf(record.SNS.MessageAttributes); !ok || feed != svc.AgentMessageFeed {
			continue
		}

		var message bot.AgentMessage
		if err := json.Unmarshal([]byte(record.SNS.Message), &message); err != nil {
			s.logger.Error("malformed agent message", "error", err)
			continue
		}

		sent, err := s.agent.Reply(ctx, message)
		if errors.Is(err, chat.ErrNotFound) || errors.Is(err, chat.ErrUnresolvedSender) {
			s.logger.Warn("no open conversation for agent message", "recipient", message.Recipient)
			continue
		}
		if err != nil {
			return err
		}
		if sent != nil {
			s.logger.Info("sent agent message", "conversation_id", sent.ConversationID, "closed", message.Close)
		}
	}
	return nil
}

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	agent, err := a.Agent()
	if err != nil {
		log.Fatal(err)
	}
	s := &sender{agent: agent, logger: a.Logger}
	lambda.Start(s.handle)
}
