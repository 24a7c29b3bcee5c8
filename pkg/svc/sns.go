package svc

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sns"
)

// ReceivedMessageFeed is the feed name for handling received messages
const ReceivedMessageFeed = "handle_received_message"

// AgentMessageFeed is the feed name for replies written by human agents
const AgentMessageFeed = "send_agent_message"

// SNS is an interface for the SNSClient and associated mock
type SNS interface {
	Publish(context.Context, string, string, string) error
}

// SNSClient implements SNS for a generic way of managing the SNS service
type SNSClient struct {
	Client *sns.SNS
}

// NewSNSClient creates an SNSClient object
func NewSNSClient() *SNSClient {
	client := sns.New(session.Must(session.NewSession()))
	return &SNSClient{Client: client}
}

// Publish sends a message to a given topic and feed
func (c *SNSClient) Publish(ctx context.Context, message string, topicArn string, feed string) error {
	_, err := c.Client.PublishWithContext(ctx, &sns.PublishInput{
		Message:  aws.String(message),
		TopicArn: aws.String(topicArn),
		MessageAttributes: map[string]*sns.MessageAttributeValue{
			"feed": {
				DataType:    aws.String("String"),
				StringValue: aws.String(feed),
			},
		},
	})
	return err
}

// PublishJSON marshals v and publishes it to a feed
func PublishJSON(ctx context.Context, client SNS, topicArn, feed string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Publish(ctx, string(body), topicArn, feed)
}

// FeedOf reads the feed attribute from an SNS record's message attributes,
// which Lambda delivers as {"Type": ..., "Value": ...} objects
func FeedOf(attributes map[string]interface{}) (string, bool) {
	raw, ok := attributes["feed"]
	if !ok {
		return "", false
	}
	switch attr := raw.(type) {
	case string:
		return attr, true
	case map[string]interface{}:
		value, ok := attr["Value"].(string)
		return value, ok
	}
	return "", false
}
