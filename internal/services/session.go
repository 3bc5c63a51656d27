package services

import (
	"context"
	"log"
	"sync"
)

// Conversation is one live exchange with the language model. Implemented
// by ChatSession; handler tests substitute fakes.
type Conversation interface {
	SendMessage(ctx context.Context, text string) (string, error)
}

// SessionFactory constructs a new Conversation for a user. An empty
// systemInstruction means "resolve from the bundled prompt template".
// Implemented by GeminiService.
type SessionFactory interface {
	NewChatSession(ctx context.Context, userID, systemInstruction string) (Conversation, error)
}

// SessionManager is the per-user conversational session registry: at most
// one Conversation per user id at any time. Sessions are created lazily
// on first contact and held for the life of the process — there is no
// eviction and no persistence, so growth is bounded only by the number of
// distinct users (monitor via Count).
type SessionManager struct {
	factory  SessionFactory
	mu       sync.RWMutex
	sessions map[string]Conversation
}

// NewSessionManager creates an empty registry backed by the given factory.
func NewSessionManager(factory SessionFactory) *SessionManager {
	return &SessionManager{
		factory:  factory,
		sessions: make(map[string]Conversation),
	}
}

// GetOrCreate returns the existing session for userID or constructs one.
// Construction runs under the write lock after a re-check, so two
// concurrent first contacts from the same user produce exactly one remote
// session. Construction failures propagate and nothing is stored.
func (sm *SessionManager) GetOrCreate(ctx context.Context, userID, systemInstruction string) (Conversation, error) {
	sm.mu.RLock()
	session, exists := sm.sessions[userID]
	sm.mu.RUnlock()
	if exists {
		return session, nil
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if session, exists := sm.sessions[userID]; exists {
		return session, nil
	}

	session, err := sm.factory.NewChatSession(ctx, userID, systemInstruction)
	if err != nil {
		return nil, err
	}

	sm.sessions[userID] = session
	log.Printf("New chat session created for user %s", userID)
	return session, nil
}

// Get returns the existing session for userID without creating one.
func (sm *SessionManager) Get(userID string) (Conversation, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[userID]
	return session, exists
}

// Delete removes the session for userID, reporting whether one existed.
func (sm *SessionManager) Delete(userID string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.sessions[userID]; !exists {
		return false
	}
	delete(sm.sessions, userID)
	log.Printf("Chat session deleted for user %s", userID)
	return true
}

// Clear empties the registry.
func (sm *SessionManager) Clear() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.sessions = make(map[string]Conversation)
	log.Println("All chat sessions cleared")
}

// Count returns the number of live sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return len(sm.sessions)
}

// ActiveUsers returns the user ids with a live session (for monitoring).
func (sm *SessionManager) ActiveUsers() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	users := make([]string, 0, len(sm.sessions))
	for userID := range sm.sessions {
		users = append(users, userID)
	}
	return users
}
