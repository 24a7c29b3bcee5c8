package mocks

import (
	"net/url"

	"github.com/sfreiberg/gotwilio"
	"github.com/stretchr/testify/mock"
)

// TwilioClientMock is a mock for Twilio
type TwilioClientMock struct {
	mock.Mock
}

// SendSMS mocks sending Twilio SMS
func (m *TwilioClientMock) SendSMS(from, to, body, statusCallback, applicationSid string) (*gotwilio.SmsResponse, *gotwilio.Exception, error) {
	args := m.Called(from, to, body, statusCallback, applicationSid)
	res, _ := args.Get(0).(*gotwilio.SmsResponse)
	exc, _ := args.Get(1).(*gotwilio.Exception)
	return res, exc, args.Error(2)
}

// GenerateSignature mocks Twilio request signing
func (m *TwilioClientMock) GenerateSignature(url string, form url.Values) ([]byte, error) {
	args := m.Called(url, form)
	sig, _ := args.Get(0).([]byte)
	return sig, args.Error(1)
}
