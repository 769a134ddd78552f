// Package conversation holds the in-memory rolling chat history for each
// WhatsApp user. History lives for the process lifetime only.
package conversation

import (
	"fmt"
	"sync"

	"github.com/soff-io/warelay/llm"
)

// MaxTurns caps the number of retained turns per user. When an append
// would exceed it, the two oldest turns are evicted together so user and
// assistant turns stay paired.
const MaxTurns = 10

type Store struct {
	mu      sync.Mutex
	entries map[string][]llm.Message
}

func NewStore() *Store {
	return &Store{entries: make(map[string][]llm.Message)}
}

// AppendUserTurn records a user message, creating the user's entry on
// first contact.
func (s *Store) AppendUserTurn(userID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = trim(append(s.entries[userID], llm.Message{Role: llm.RoleUser, Content: text}))
}

// AppendAssistantTurn records an assistant reply. The entry must already
// exist from the paired AppendUserTurn.
func (s *Store) AppendAssistantTurn(userID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[userID]; !ok {
		return fmt.Errorf("conversation entry for %q does not exist", userID)
	}
	s.entries[userID] = trim(append(s.entries[userID], llm.Message{Role: llm.RoleAssistant, Content: text}))
	return nil
}

// History returns a copy of the user's turns, oldest first. Mutating the
// returned slice does not affect the store.
func (s *Store) History(userID string) []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Message(nil), s.entries[userID]...)
}

func (s *Store) Len(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries[userID])
}

// trim drops the two oldest turns whenever the entry grows past MaxTurns.
// The eviction is role-blind: if turns stopped alternating (e.g. two
// unanswered user turns after backend failures), it still removes exactly
// the two oldest items.
func trim(turns []llm.Message) []llm.Message {
	for len(turns) > MaxTurns {
		turns = turns[2:]
	}
	return turns
}
