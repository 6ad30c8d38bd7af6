package service

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tariffsheriff/tradeassist/internal/config"
	"github.com/tariffsheriff/tradeassist/internal/domain/conversation"
)

// Store keeps conversations in memory, bounded per user and per
// conversation. Locking is striped by user: the outer map lock is held
// only to find or create a user's bucket, so unrelated users never
// contend on conversation writes.
type Store struct {
	mu          sync.RWMutex
	users       map[string]*userBucket
	maxMessages int
	maxPerUser  int
	titleWidth  int
	now         func() time.Time // for testing
	newID       func() string    // for testing
}

type userBucket struct {
	mu    sync.Mutex
	convs map[string]*conversation.Conversation
}

// NewStore creates a conversation store with the configured bounds.
func NewStore(cfg config.Conversation) *Store {
	return &Store{
		users:       make(map[string]*userBucket),
		maxMessages: cfg.MaxMessages,
		maxPerUser:  cfg.MaxPerUser,
		titleWidth:  cfg.TitleDisplayWidth,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// bucket finds or creates the user's bucket. Only write paths call it;
// read paths use lookup so probing an unknown user allocates nothing.
func (s *Store) bucket(userID string) *userBucket {
	s.mu.RLock()
	b, ok := s.users[userID]
	s.mu.RUnlock()
	if ok {
		return b
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok = s.users[userID]; ok {
		return b
	}
	b = &userBucket{convs: make(map[string]*conversation.Conversation)}
	s.users[userID] = b
	return b
}

func (s *Store) lookup(userID string) (*userBucket, bool) {
	s.mu.RLock()
	b, ok := s.users[userID]
	s.mu.RUnlock()
	return b, ok
}

// StoreExchange appends a user turn and the assistant's reply to the
// given conversation, creating a new conversation when conversationID is
// empty or no longer present. It returns the conversation ID the
// exchange landed in.
func (s *Store) StoreExchange(userID, conversationID, userText, assistantText string, toolsUsed []string) string {
	b := s.bucket(userID)
	b.mu.Lock()
	defer b.mu.Unlock()

	now := s.now()
	conv, ok := b.convs[conversationID]
	if conversationID == "" || !ok {
		conv = &conversation.Conversation{
			ID:        s.newID(),
			UserID:    userID,
			Title:     conversation.TitleFor(userText, s.titleWidth),
			CreatedAt: now,
		}
		b.convs[conv.ID] = conv
		s.evictLocked(b, conv.ID)
	}

	conv.Messages = append(conv.Messages,
		conversation.Message{Role: conversation.RoleUser, Content: userText, CreatedAt: now},
		conversation.Message{Role: conversation.RoleAssistant, Content: assistantText, ToolsUsed: toolsUsed, CreatedAt: now},
	)
	if len(conv.Messages) > s.maxMessages {
		conv.Messages = append(conv.Messages[:0:0], conv.Messages[len(conv.Messages)-s.maxMessages:]...)
	}
	conv.UpdatedAt = now
	return conv.ID
}

// evictLocked drops the least recently updated conversations until the
// per-user cap holds. The freshly created conversation is never evicted.
func (s *Store) evictLocked(b *userBucket, keep string) {
	for len(b.convs) > s.maxPerUser {
		oldestID := ""
		var oldest time.Time
		for id, c := range b.convs {
			if id == keep {
				continue
			}
			if oldestID == "" || c.UpdatedAt.Before(oldest) {
				oldestID, oldest = id, c.UpdatedAt
			}
		}
		if oldestID == "" {
			return
		}
		delete(b.convs, oldestID)
	}
}

// Get returns a copy of the conversation, so callers can read it without
// holding store locks.
func (s *Store) Get(userID, conversationID string) (conversation.Conversation, bool) {
	b, ok := s.lookup(userID)
	if !ok {
		return conversation.Conversation{}, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	conv, ok := b.convs[conversationID]
	if !ok {
		return conversation.Conversation{}, false
	}
	out := *conv
	out.Messages = append([]conversation.Message(nil), conv.Messages...)
	return out, true
}

// Recent returns up to n of the conversation's latest messages, oldest
// first, ready for prompt assembly.
func (s *Store) Recent(userID, conversationID string, n int) []conversation.Message {
	b, found := s.lookup(userID)
	if !found {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	conv, ok := b.convs[conversationID]
	if !ok || n <= 0 {
		return nil
	}
	msgs := conv.Messages
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return append([]conversation.Message(nil), msgs...)
}

// Summaries lists the user's conversations, most recently updated first.
func (s *Store) Summaries(userID string) []conversation.Summary {
	b, ok := s.lookup(userID)
	if !ok {
		// Non-nil so the API layer renders an empty list, not null.
		return []conversation.Summary{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]conversation.Summary, 0, len(b.convs))
	for _, c := range b.convs {
		out = append(out, conversation.Summary{
			ID:           c.ID,
			Title:        c.Title,
			MessageCount: len(c.Messages),
			CreatedAt:    c.CreatedAt,
			UpdatedAt:    c.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

// Delete removes one conversation. It reports whether it existed.
func (s *Store) Delete(userID, conversationID string) bool {
	b, ok := s.lookup(userID)
	if !ok {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.convs[conversationID]; !ok {
		return false
	}
	delete(b.convs, conversationID)
	return true
}

// ClearUser removes all of a user's conversations and returns how many
// were dropped.
func (s *Store) ClearUser(userID string) int {
	b, ok := s.lookup(userID)
	if !ok {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.convs)
	b.convs = make(map[string]*conversation.Conversation)
	return n
}

// Stats aggregates counts across all users.
func (s *Store) Stats() conversation.Stats {
	s.mu.RLock()
	buckets := make([]*userBucket, 0, len(s.users))
	for _, b := range s.users {
		buckets = append(buckets, b)
	}
	s.mu.RUnlock()

	var st conversation.Stats
	for _, b := range buckets {
		b.mu.Lock()
		if len(b.convs) > 0 {
			st.Users++
		}
		st.Conversations += len(b.convs)
		for _, c := range b.convs {
			st.Messages += len(c.Messages)
		}
		b.mu.Unlock()
	}
	return st
}
