package svc

import (
	"context"
	"crypto/hmac"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/schema"
	"github.com/sfreiberg/gotwilio"

	"github.com/City-Bureau/intakechat/pkg/chat"
)

const whatsAppPrefix = "whatsapp:"

// TwilioClient generalizes access to Twilio
type TwilioClient interface {
	SendSMS(string, string, string, string, string) (*gotwilio.SmsResponse, *gotwilio.Exception, error)
	GenerateSignature(string, url.Values) ([]byte, error)
}

// TwilioChat delivers replies and decodes webhooks for Twilio messaging
type TwilioChat struct {
	Client   TwilioClient
	From     string // The Twilio automated number
	WhatsApp bool   // Address users through Twilio's WhatsApp channel
}

// NewTwilioChat is a constructor for Twilio Chat structs
func NewTwilioChat(client TwilioClient, from string, whatsApp bool) *TwilioChat {
	return &TwilioChat{
		Client:   client,
		From:     from,
		WhatsApp: whatsApp,
	}
}

// Deliver sends body to a contact and returns the Twilio message SID
func (c *TwilioChat) Deliver(ctx context.Context, destination, body string) (string, error) {
	to := destination
	if c.WhatsApp && !strings.HasPrefix(to, whatsAppPrefix) {
		to = whatsAppPrefix + to
	}
	res, twilioErr, err := c.Client.SendSMS(c.From, to, body, "", "")
	if err != nil {
		return "", err
	}
	if twilioErr != nil {
		return "", fmt.Errorf("twilio returned error code %d: %s", twilioErr.Code, twilioErr.Message)
	}
	if res == nil {
		return "", nil
	}
	return res.Sid, nil
}

// DecodeSMSWebhook decodes a Twilio webhook form, ignoring keys not in
// the webhook struct
func DecodeSMSWebhook(values url.Values) (gotwilio.SMSWebhook, error) {
	var smsWebhook gotwilio.SMSWebhook
	formDecoder := schema.NewDecoder()
	formDecoder.IgnoreUnknownKeys(true)
	formDecoder.SetAliasTag("form")
	err := formDecoder.Decode(&smsWebhook, values)
	return smsWebhook, err
}

// HandleSMSWebhook converts an SMS webhook into an inbound event
func (c *TwilioChat) HandleSMSWebhook(data gotwilio.SMSWebhook) chat.InboundEvent {
	return chat.InboundEvent{
		SenderID:          strings.TrimPrefix(data.From, whatsAppPrefix),
		Text:              data.Body,
		ProviderMessageID: data.MessageSid,
	}
}

// CheckSignature validates the X-Twilio-Signature header for a request
func (c *TwilioChat) CheckSignature(url, signature string, values url.Values) (bool, error) {
	expected, err := c.Client.GenerateSignature(url, values)
	if err != nil {
		return false, err
	}

	return hmac.Equal(expected, []byte(signature)), nil
}
