// Package conversation keeps the bounded, persisted message log of each agent.
package conversation

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"agents-chat/internal/kv"
	"agents-chat/internal/types"
	"agents-chat/internal/utils"
)

const (
	MaxMessages = 50
	keyPrefix   = "chat-history-"
)

var (
	ErrAgentMismatch = errors.New("message belongs to another agent")
	ErrEmptyContent  = errors.New("message content is empty")
	ErrInvalidRole   = errors.New("invalid message role")
	ErrDuplicateID   = errors.New("duplicate message id")
)

func Key(agentID int) string {
	return keyPrefix + strconv.Itoa(agentID)
}

// Store serializes all access to the underlying kv.Store and writes through on every mutation.
type Store struct {
	mu     sync.Mutex
	kv     kv.Store
	logger *utils.Logger
	max    int
}

type Option func(*Store)

func WithMaxMessages(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.max = n
		}
	}
}

func New(backend kv.Store, logger *utils.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = utils.NopLogger()
	}
	s := &Store{kv: backend, logger: logger, max: MaxMessages}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) MaxMessages() int {
	return s.max
}

// Load returns the persisted conversation, or an empty one when the record is missing or unreadable.
func (s *Store) Load(ctx context.Context, agentID int) []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx, agentID)
}

func (s *Store) loadLocked(ctx context.Context, agentID int) []types.Message {
	raw, ok, err := s.kv.Get(ctx, Key(agentID))
	if err != nil {
		s.logger.Warnf("read history for agent %d: %v", agentID, err)
		return []types.Message{}
	}
	if !ok {
		return []types.Message{}
	}
	msgs, err := Decode(raw)
	if err != nil {
		s.logger.Warnf("discarding unreadable history for agent %d: %v", agentID, err)
		return []types.Message{}
	}
	// records written under a larger cap, or imported, keep only their newest entries
	if over := len(msgs) - s.max; over > 0 {
		msgs = msgs[over:]
	}
	return msgs
}

// Append adds msg to the end of the agent's conversation, evicts the oldest entries beyond the cap
// and persists the result before returning it.
func (s *Store) Append(ctx context.Context, agentID int, msg types.Message) ([]types.Message, error) {
	if msg.AgentID != agentID {
		return nil, errors.Wrapf(ErrAgentMismatch, "message agent %d, conversation %d", msg.AgentID, agentID)
	}
	if msg.Blank() {
		return nil, ErrEmptyContent
	}
	if !msg.Role.Valid() {
		return nil, errors.Wrapf(ErrInvalidRole, "%q", msg.Role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.loadLocked(ctx, agentID)
	if n := len(msgs); n > 0 {
		for _, existing := range msgs {
			if existing.ID == msg.ID {
				return nil, errors.Wrapf(ErrDuplicateID, "%s", msg.ID)
			}
		}
		if last := msgs[n-1].Timestamp; msg.Timestamp < last {
			msg.Timestamp = last
		}
	}
	msgs = append(msgs, msg)
	if over := len(msgs) - s.max; over > 0 {
		msgs = msgs[over:]
	}
	if err := s.saveLocked(ctx, agentID, msgs); err != nil {
		return nil, err
	}
	return types.CloneMessages(msgs), nil
}

// Clear removes the agent's record. Clearing a conversation that does not exist is a no-op.
func (s *Store) Clear(ctx context.Context, agentID int) ([]types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Delete(ctx, Key(agentID)); err != nil {
		return nil, errors.Wrapf(err, "clear history for agent %d", agentID)
	}
	return []types.Message{}, nil
}

// Conversations lists the agent ids that currently have a persisted record.
func (s *Store) Conversations(ctx context.Context) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys, err := s.kv.Keys(ctx, keyPrefix)
	if err != nil {
		return nil, errors.Wrap(err, "list conversations")
	}
	ids := make([]int, 0, len(keys))
	for _, key := range keys {
		id, err := strconv.Atoi(strings.TrimPrefix(key, keyPrefix))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) saveLocked(ctx context.Context, agentID int, msgs []types.Message) error {
	payload, err := Encode(msgs)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, Key(agentID), payload); err != nil {
		return errors.Wrapf(err, "persist history for agent %d", agentID)
	}
	return nil
}

// Encode serializes a conversation as a JSON array.
func Encode(msgs []types.Message) (string, error) {
	if msgs == nil {
		msgs = []types.Message{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return "", errors.Wrap(err, "encode conversation")
	}
	return string(data), nil
}

func Decode(raw string) ([]types.Message, error) {
	var msgs []types.Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		return nil, errors.Wrap(err, "decode conversation")
	}
	if msgs == nil {
		msgs = []types.Message{}
	}
	return msgs, nil
}
