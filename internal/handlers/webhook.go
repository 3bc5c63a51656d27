package handlers

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	twilioclient "github.com/twilio/twilio-go/client"

	"github.com/cryptolock-hq/chatbot-backend/internal/config"
	"github.com/cryptolock-hq/chatbot-backend/internal/middleware"
	"github.com/cryptolock-hq/chatbot-backend/internal/models"
	"github.com/cryptolock-hq/chatbot-backend/internal/services"
	"github.com/cryptolock-hq/chatbot-backend/internal/storage"
)

// apologyReply is sent to the user when the AI call fails. The webhook
// still acknowledges the delivery.
const apologyReply = "Sorry, something went wrong while processing your message. Please try again."

// MessageSender is the outbound transport used by the webhook flow.
// Implemented by services.TwilioService; tests substitute fakes.
type MessageSender interface {
	SendWhatsAppMessage(to string, body string, mediaURLs []string) (*models.SendResult, error)
	GetMessageStatus(messageSid string) (string, error)
}

// WebhookHandler processes Twilio WhatsApp webhook requests.
type WebhookHandler struct {
	cfg       *config.Config
	sessions  *services.SessionManager
	sender    MessageSender
	store     storage.Store
	validator twilioclient.RequestValidator
}

// NewWebhookHandler creates a webhook handler. sender may be nil, in
// which case inbound messages are processed but replies are not sent.
func NewWebhookHandler(cfg *config.Config, sessions *services.SessionManager, sender MessageSender, store storage.Store) *WebhookHandler {
	return &WebhookHandler{
		cfg:       cfg,
		sessions:  sessions,
		sender:    sender,
		store:     store,
		validator: twilioclient.NewRequestValidator(cfg.TwilioAuthToken),
	}
}

// Verify handles GET /webhook. A request carrying a Twilio signature is
// validated cryptographically; otherwise the hub.verify_token query
// parameter must match the configured secret, and the hub.challenge value
// is echoed back.
func (h *WebhookHandler) Verify(c *fiber.Ctx) error {
	if signature := c.Get("X-Twilio-Signature"); signature != "" {
		url := fmt.Sprintf("%s://%s%s", c.Protocol(), c.Hostname(), c.OriginalURL())
		if !h.validator.Validate(url, map[string]string{}, signature) {
			log.Printf("⚠️  Webhook verification failed: invalid Twilio signature")
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Invalid Twilio signature",
			})
		}
		log.Println("Webhook verified via Twilio signature")
		return c.SendString("ok")
	}

	if c.Query("hub.verify_token") == h.cfg.VerifyToken {
		log.Println("Webhook verified via token")
		if challenge := c.Query("hub.challenge"); challenge != "" {
			return c.SendString(challenge)
		}
		return c.SendString("ok")
	}

	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error": "Invalid or missing verification token",
	})
}

// Receive handles POST /webhook: normalize the delivery, run the AI
// exchange, send the reply. Twilio retries webhooks on non-2xx responses,
// which would double-process messages, so every outcome here is reported
// as HTTP 200 with a JSON status field.
func (h *WebhookHandler) Receive(c *fiber.Ctx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Panic while processing webhook: %v", r)
			err = c.JSON(fiber.Map{
				"status":  "error",
				"message": fmt.Sprintf("Critical error: %v", r),
			})
		}
	}()

	form := middleware.FormParams(c)

	msg, parseErr := services.ParseIncomingWebhook(form)
	if parseErr != nil {
		if errors.Is(parseErr, services.ErrIncompleteWebhook) {
			log.Printf("Webhook event ignored: %v", parseErr)
			return c.JSON(fiber.Map{
				"status":  "success",
				"message": "Event ignored",
			})
		}
		log.Printf("❌ Failed to process webhook: %v", parseErr)
		return c.JSON(fiber.Map{
			"status":  "error",
			"message": "Failed to process: " + parseErr.Error(),
		})
	}

	h.recordInbound(msg)

	switch {
	case msg.Type == models.MessageTypeText && msg.Body != "":
		return h.handleTextMessage(c, msg)

	case msg.Type == models.MessageTypeMedia:
		log.Printf("Media message received from %s (%d urls)", msg.From, len(msg.MediaURLs))
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Media received",
		})

	default:
		log.Printf("Empty or unsupported message from %s", msg.From)
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Unsupported message type",
		})
	}
}

func (h *WebhookHandler) handleTextMessage(c *fiber.Ctx, msg *models.IncomingMessage) error {
	log.Printf("📱 Message received from %s: %q", msg.From, msg.Body)

	session, err := h.sessions.GetOrCreate(c.UserContext(), msg.From, "")
	if err != nil {
		log.Printf("❌ Failed to create chat session for %s: %v", msg.From, err)
		return c.JSON(fiber.Map{
			"status":  "error",
			"message": "Failed to create chat session",
		})
	}

	reply, err := session.SendMessage(c.UserContext(), msg.Body)
	if err != nil {
		log.Printf("❌ AI response failed for %s: %v", msg.From, err)
		reply = apologyReply
	}

	if h.sender == nil {
		log.Printf("⚠️  Twilio not available, reply not sent: %q", reply)
		return c.JSON(fiber.Map{
			"status":  "warning",
			"message": "Twilio not available",
		})
	}

	result, err := h.sender.SendWhatsAppMessage(msg.From, reply, nil)
	if err != nil {
		log.Printf("❌ Failed to send reply to %s: %v", msg.From, err)
		return c.JSON(fiber.Map{
			"status":  "error",
			"message": "Failed to send: " + err.Error(),
		})
	}

	h.recordOutbound(result, reply)
	log.Printf("✅ Reply sent to %s, SID: %s", msg.From, result.MessageSid)

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Message processed",
	})
}

// recordInbound appends the inbound message to the audit log. Log
// failures never interrupt the webhook flow.
func (h *WebhookHandler) recordInbound(msg *models.IncomingMessage) {
	if h.store == nil {
		return
	}
	_, err := h.store.CreateMessage(&models.MessageRecord{
		MessageSid:  msg.MessageSid,
		Direction:   models.DirectionInbound,
		FromNumber:  msg.From,
		ToNumber:    msg.To,
		Body:        msg.Body,
		MessageType: msg.Type,
	})
	if err != nil {
		log.Printf("⚠️  Failed to record inbound message %s: %v", msg.MessageSid, err)
	}
}

func (h *WebhookHandler) recordOutbound(result *models.SendResult, body string) {
	if h.store == nil {
		return
	}
	_, err := h.store.CreateMessage(&models.MessageRecord{
		MessageSid:     result.MessageSid,
		Direction:      models.DirectionOutbound,
		FromNumber:     services.StripWhatsAppPrefix(result.From),
		ToNumber:       services.StripWhatsAppPrefix(result.To),
		Body:           body,
		MessageType:    models.MessageTypeText,
		DeliveryStatus: result.Status,
	})
	if err != nil {
		log.Printf("⚠️  Failed to record outbound message %s: %v", result.MessageSid, err)
	}
}
