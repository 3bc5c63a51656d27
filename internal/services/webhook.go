package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cryptolock-hq/chatbot-backend/internal/models"
)

// ErrIncompleteWebhook signals a delivery that is missing the fields
// required to act on it (MessageSid, From). Callers should acknowledge
// the webhook and drop the event.
var ErrIncompleteWebhook = errors.New("incomplete webhook data")

// whatsappPrefix is the transport scheme Twilio prepends to WhatsApp
// addresses on the wire.
const whatsappPrefix = "whatsapp:"

// ParseIncomingWebhook normalizes the raw form fields of one Twilio
// webhook delivery into an IncomingMessage. It is a pure function of its
// input: no I/O, no state.
//
// Missing MessageSid or From yields ErrIncompleteWebhook. NumMedia is
// coerced with a zero default on failure; MediaUrl0..N-1 fields are
// collected with absent indices skipped. The message is classified as
// media iff at least one URL was collected.
func ParseIncomingWebhook(form map[string]string) (*models.IncomingMessage, error) {
	messageSid := form["MessageSid"]
	from := StripWhatsAppPrefix(form["From"])
	to := StripWhatsAppPrefix(form["To"])

	if messageSid == "" || from == "" {
		return nil, fmt.Errorf("%w: MessageSid=%q From=%q", ErrIncompleteWebhook, messageSid, from)
	}

	numMedia, err := strconv.Atoi(form["NumMedia"])
	if err != nil || numMedia < 0 {
		numMedia = 0
	}

	var mediaURLs []string
	for i := 0; i < numMedia; i++ {
		if url := form[fmt.Sprintf("MediaUrl%d", i)]; url != "" {
			mediaURLs = append(mediaURLs, url)
		}
	}

	messageType := models.MessageTypeText
	if len(mediaURLs) > 0 {
		messageType = models.MessageTypeMedia
	}

	return &models.IncomingMessage{
		MessageSid: messageSid,
		AccountSid: form["AccountSid"],
		From:       from,
		To:         to,
		Body:       form["Body"],
		NumMedia:   numMedia,
		MediaURLs:  mediaURLs,
		Type:       messageType,
		Timestamp:  form["Timestamp"],
	}, nil
}

// StripWhatsAppPrefix removes the "whatsapp:" transport prefix from an
// address, leaving the bare phone number.
func StripWhatsAppPrefix(addr string) string {
	return strings.TrimPrefix(addr, whatsappPrefix)
}
