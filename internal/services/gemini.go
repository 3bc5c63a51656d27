package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/cryptolock-hq/chatbot-backend/internal/config"
)

// geminiTimeout bounds each remote call so a hung vendor request cannot
// stall a webhook handler indefinitely.
const geminiTimeout = 30 * time.Second

// GeminiService owns the Gemini API client and constructs per-user chat
// sessions pre-seeded with the CryptoLock system instruction.
type GeminiService struct {
	client     *genai.Client
	modelName  string
	promptFile string
}

// NewGeminiService creates the Gemini client from the loaded configuration.
func NewGeminiService(ctx context.Context, cfg *config.Config) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiService{
		client:     client,
		modelName:  cfg.GeminiModel,
		promptFile: cfg.PromptFile,
	}, nil
}

// ModelName returns the configured Gemini model identifier.
func (g *GeminiService) ModelName() string {
	return g.modelName
}

// Close releases the underlying API client.
func (g *GeminiService) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// NewChatSession starts a chat for the given user. When systemInstruction
// is empty, the bundled prompt template is loaded, falling back to the
// default instruction if the file is absent or unparsable.
func (g *GeminiService) NewChatSession(ctx context.Context, userID, systemInstruction string) (Conversation, error) {
	if systemInstruction == "" {
		systemInstruction = LoadPromptTemplate(g.promptFile)
	}

	model := g.client.GenerativeModel(g.modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction)},
	}

	session := &ChatSession{
		SessionID: uuid.NewString(),
		UserID:    userID,
		chat:      model.StartChat(),
	}

	log.Printf("✅ Gemini chat session %s created for %s", session.SessionID, userID)
	return session, nil
}

// ChatSession is one ongoing exchange with Gemini for a single user. The
// turn history lives in the vendor-held chat state; this object keeps no
// transcript of its own.
type ChatSession struct {
	SessionID string
	UserID    string
	chat      *genai.ChatSession
}

// SendMessage submits user text and returns the generated reply. Failures
// are logged and returned to the caller; no retry, no fallback text here.
func (s *ChatSession) SendMessage(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, geminiTimeout)
	defer cancel()

	resp, err := s.chat.SendMessage(ctx, genai.Text(text))
	if err != nil {
		log.Printf("❌ Gemini call failed for %s: %v", s.UserID, err)
		return "", fmt.Errorf("gemini request for %s: %w", s.UserID, err)
	}

	reply := responseText(resp)
	if reply == "" {
		return "", fmt.Errorf("gemini returned no candidates for %s", s.UserID)
	}
	return reply, nil
}

// responseText flattens the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}
