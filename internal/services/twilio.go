package services

import (
	"fmt"
	"log"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSSender is the transport the dispatcher fans out through. TwilioService
// implements it; tests substitute a fake.
type SMSSender interface {
	SendSMS(to, body string) error
	Configured() bool
}

// TwilioService sends SMS via the Twilio REST API.
type TwilioService struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioService builds a client from TWILIO_* environment variables.
// Missing credentials return an unconfigured service — the dispatcher then
// runs in mock mode so the rest of the system behaves as if sends succeed.
func NewTwilioService() *TwilioService {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	from := os.Getenv("TWILIO_PHONE_NUMBER")

	if accountSid == "" || authToken == "" || from == "" {
		return &TwilioService{}
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	return &TwilioService{
		client: client,
		from:   from,
	}
}

// Configured reports whether real sends are possible.
func (t *TwilioService) Configured() bool {
	return t != nil && t.client != nil
}

// SendSMS sends one SMS message.
func (t *TwilioService) SendSMS(to, body string) error {
	if !t.Configured() {
		return fmt.Errorf("twilio client not initialized")
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(to)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send SMS: %v", err)
		return err
	}

	if resp.ErrorCode != nil && *resp.ErrorCode != 0 {
		return fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, *resp.ErrorMessage)
	}

	log.Printf("✅ SMS sent! SID: %s", *resp.Sid)
	return nil
}
