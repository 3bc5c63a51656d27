package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/cryptolock-hq/chatbot-backend/internal/config"
	"github.com/cryptolock-hq/chatbot-backend/internal/models"
)

// MessageError is a typed error for Twilio send/fetch failures, carrying
// the vendor status code when one was returned.
type MessageError struct {
	Code    int
	Message string
}

func (e *MessageError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("twilio error %d: %s", e.Code, e.Message)
	}
	return e.Message
}

// TwilioService sends WhatsApp messages via Twilio Programmable Messaging.
type TwilioService struct {
	client *twilio.RestClient
	from   string // Twilio WhatsApp number, e.g. "+14155238886"
}

// NewTwilioService creates a Twilio service from the loaded configuration.
func NewTwilioService(cfg *config.Config) (*TwilioService, error) {
	if !cfg.TwilioConfigured() {
		return nil, &MessageError{Message: "incomplete Twilio credentials: check TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, TWILIO_WHATSAPP_NUMBER"}
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})

	return &TwilioService{
		client: client,
		from:   cfg.TwilioWhatsAppNumber,
	}, nil
}

// SendWhatsAppMessage sends body (and optionally the first media URL) to
// the given destination. The destination may be a bare number or already
// carry the "whatsapp:" prefix.
func (t *TwilioService) SendWhatsAppMessage(to string, body string, mediaURLs []string) (*models.SendResult, error) {
	toAddr := NormalizeWhatsAppAddress(to)
	fromAddr := NormalizeWhatsAppAddress(t.from)

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(fromAddr)
	params.SetTo(toAddr)
	params.SetBody(body)
	if len(mediaURLs) > 0 {
		params.SetMediaUrl(mediaURLs[:1])
	}

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send WhatsApp message to %s: %v", toAddr, err)
		var restErr *twilioclient.TwilioRestError
		if errors.As(err, &restErr) {
			return nil, &MessageError{Code: restErr.Code, Message: restErr.Message}
		}
		return nil, &MessageError{Message: err.Error()}
	}

	result := &models.SendResult{
		Success: true,
		From:    fromAddr,
		To:      toAddr,
	}
	if resp.Sid != nil {
		result.MessageSid = *resp.Sid
	}
	if resp.Status != nil {
		result.Status = *resp.Status
	}

	log.Printf("✅ WhatsApp message sent to %s, SID: %s", toAddr, result.MessageSid)
	return result, nil
}

// GetMessageStatus fetches the current delivery status of a previously
// sent message (queued, sending, sent, delivered, failed, ...).
func (t *TwilioService) GetMessageStatus(messageSid string) (string, error) {
	resp, err := t.client.Api.FetchMessage(messageSid, &twilioApi.FetchMessageParams{})
	if err != nil {
		var restErr *twilioclient.TwilioRestError
		if errors.As(err, &restErr) {
			return "", &MessageError{Code: restErr.Code, Message: restErr.Message}
		}
		return "", &MessageError{Message: err.Error()}
	}
	if resp.Status == nil {
		return "", nil
	}
	return *resp.Status, nil
}

// NormalizeWhatsAppAddress converts a phone number into Twilio's
// scheme-prefixed WhatsApp form. Already-prefixed addresses pass through
// unchanged, so the operation is idempotent.
func NormalizeWhatsAppAddress(number string) string {
	if strings.HasPrefix(number, whatsappPrefix) {
		return number
	}
	if strings.HasPrefix(number, "+") {
		return whatsappPrefix + number
	}
	return whatsappPrefix + "+" + number
}
