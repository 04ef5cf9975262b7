// Package session drives conversation turns: it persists the user's message and schedules the
// synthesized assistant reply on a cancelable per-agent timer.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"agents-chat/internal/catalog"
	"agents-chat/internal/clock"
	"agents-chat/internal/conversation"
	"agents-chat/internal/types"
	"agents-chat/internal/utils"
)

const DefaultReplyDelay = 1000 * time.Millisecond

var (
	ErrUnknownAgent = errors.New("unknown agent")
	ErrClosed       = errors.New("session closed")
)

type State string

const (
	StateIdle         State = "idle"
	StateReplyPending State = "reply-pending"
)

type UpdateReason string

const (
	ReasonUserMessage UpdateReason = "user-message"
	ReasonReply       UpdateReason = "reply"
	ReasonCleared     UpdateReason = "cleared"
)

// Update is delivered to OnUpdate listeners after the conversation of AgentID changed.
// Seq grows with every change of any conversation, so a receiver can drop a snapshot that
// arrives after a newer one.
type Update struct {
	AgentID  int
	Messages []types.Message
	Reason   UpdateReason
	Seq      uint64
}

// ReplyFunc produces the assistant content for the text as the user submitted it.
type ReplyFunc func(agent catalog.Agent, text string) string

func EchoReply(agent catalog.Agent, text string) string {
	return fmt.Sprintf("Reply from %s: %s", agent.Name, text)
}

type Options struct {
	ReplyDelay time.Duration
	Clock      clock.Clock
	Reply      ReplyFunc
	Logger     *utils.Logger
}

type turn struct {
	agent catalog.Agent
	text  string
}

// replyQueue holds the turns of one agent awaiting a reply. Only the head has a live timer.
type replyQueue struct {
	turns []turn
	timer clock.Timer
	gen   uint64
	idle  chan struct{}
}

type Session struct {
	mu       sync.Mutex
	store    *conversation.Store
	catalog  *catalog.Catalog
	clock    clock.Clock
	delay    time.Duration
	reply    ReplyFunc
	logger   *utils.Logger
	queues   map[int]*replyQueue
	gen      uint64
	seq      uint64
	closed   bool
	listenMu sync.RWMutex
	listen   []func(Update)
}

func New(store *conversation.Store, cat *catalog.Catalog, opts Options) *Session {
	if opts.ReplyDelay <= 0 {
		opts.ReplyDelay = DefaultReplyDelay
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Reply == nil {
		opts.Reply = EchoReply
	}
	if opts.Logger == nil {
		opts.Logger = utils.NopLogger()
	}
	return &Session{
		store:   store,
		catalog: cat,
		clock:   opts.Clock,
		delay:   opts.ReplyDelay,
		reply:   opts.Reply,
		logger:  opts.Logger,
		queues:  make(map[int]*replyQueue),
	}
}

// OnUpdate registers fn to run after every append or clear. Listeners run outside the session lock.
func (s *Session) OnUpdate(fn func(Update)) {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()
	s.listen = append(s.listen, fn)
}

// Submit appends the user's message, trimmed, and queues its reply built from the raw text.
// Whitespace-only text is ignored and returns (nil, nil).
func (s *Session) Submit(ctx context.Context, agentID int, text string) (*types.Message, error) {
	content := strings.TrimSpace(text)
	if content == "" {
		s.logger.Debugf("ignoring blank submit for agent %d", agentID)
		return nil, nil
	}
	agent, ok := s.catalog.GetAgent(agentID)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownAgent, "id %d", agentID)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	msg := types.Message{
		ID:        utils.NewMessageID(string(types.RoleUser), agentID),
		Content:   content,
		Role:      types.RoleUser,
		Timestamp: s.clock.Now().UnixMilli(),
		AgentID:   agentID,
	}
	msgs, err := s.store.Append(ctx, agentID, msg)
	if err != nil {
		s.mu.Unlock()
		s.logger.Errorf("append user message for agent %d: %v", agentID, err)
		return nil, err
	}
	s.enqueueLocked(agentID, turn{agent: agent, text: text})
	seq := s.nextSeqLocked()
	s.mu.Unlock()

	// the store may have moved the timestamp forward
	stored := msgs[len(msgs)-1]
	s.logger.Debugf("agent %d: user message %s stored, reply pending", agentID, stored.ID)
	s.emit(Update{AgentID: agentID, Messages: msgs, Reason: ReasonUserMessage, Seq: seq})
	return &stored, nil
}

func (s *Session) enqueueLocked(agentID int, t turn) {
	q, ok := s.queues[agentID]
	if !ok {
		q = &replyQueue{idle: make(chan struct{})}
		s.queues[agentID] = q
	}
	q.turns = append(q.turns, t)
	if q.timer == nil {
		s.armLocked(agentID, q)
	}
}

func (s *Session) armLocked(agentID int, q *replyQueue) {
	s.gen++
	gen := s.gen
	q.gen = gen
	q.timer = s.clock.AfterFunc(s.delay, func() { s.fire(agentID, gen) })
}

func (s *Session) fire(agentID int, gen uint64) {
	s.mu.Lock()
	q, ok := s.queues[agentID]
	if !ok || q.gen != gen || len(q.turns) == 0 {
		// canceled or superseded after the timer was already running
		s.mu.Unlock()
		return
	}
	head := q.turns[0]
	q.turns = q.turns[1:]
	q.timer = nil

	msg := types.Message{
		ID:        utils.NewMessageID(string(types.RoleAssistant), agentID),
		Content:   s.reply(head.agent, head.text),
		Role:      types.RoleAssistant,
		Timestamp: s.clock.Now().UnixMilli(),
		AgentID:   agentID,
	}
	msgs, err := s.store.Append(context.Background(), agentID, msg)
	seq := s.nextSeqLocked()

	if len(q.turns) > 0 {
		s.armLocked(agentID, q)
	} else {
		delete(s.queues, agentID)
		close(q.idle)
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Errorf("append reply for agent %d: %v", agentID, err)
		return
	}
	s.logger.Debugf("agent %d: reply %s stored", agentID, msg.ID)
	s.emit(Update{AgentID: agentID, Messages: msgs, Reason: ReasonReply, Seq: seq})
}

// Cancel drops every pending reply of the agent and returns how many were dropped.
// It is safe to call when nothing is pending.
func (s *Session) Cancel(agentID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(agentID)
}

// Teardown is called when the view of an agent goes away.
func (s *Session) Teardown(agentID int) {
	if n := s.Cancel(agentID); n > 0 {
		s.logger.Debugf("agent %d: teardown dropped %d pending replies", agentID, n)
	}
}

func (s *Session) nextSeqLocked() uint64 {
	s.seq++
	return s.seq
}

func (s *Session) cancelLocked(agentID int) int {
	q, ok := s.queues[agentID]
	if !ok {
		return 0
	}
	if q.timer != nil {
		q.timer.Stop()
	}
	delete(s.queues, agentID)
	close(q.idle)
	return len(q.turns)
}

// Clear cancels pending replies and removes the agent's history. A reply whose timer is already
// running cannot land afterwards because both paths hold the session lock.
func (s *Session) Clear(ctx context.Context, agentID int) error {
	s.mu.Lock()
	dropped := s.cancelLocked(agentID)
	msgs, err := s.store.Clear(ctx, agentID)
	seq := s.nextSeqLocked()
	s.mu.Unlock()
	if err != nil {
		s.logger.Errorf("clear history for agent %d: %v", agentID, err)
		return err
	}
	s.logger.Infof("agent %d: history cleared (%d pending replies dropped)", agentID, dropped)
	s.emit(Update{AgentID: agentID, Messages: msgs, Reason: ReasonCleared, Seq: seq})
	return nil
}

func (s *Session) State(agentID int) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queues[agentID]; ok {
		return StateReplyPending
	}
	return StateIdle
}

// Pending returns the number of replies still owed to the agent.
func (s *Session) Pending(agentID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.queues[agentID]; ok {
		return len(q.turns)
	}
	return 0
}

// PendingTotal returns the number of replies owed across all agents.
func (s *Session) PendingTotal() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, q := range s.queues {
		total += len(q.turns)
	}
	return total
}

// WaitIdle blocks until the agent has no pending reply or ctx is done.
func (s *Session) WaitIdle(ctx context.Context, agentID int) error {
	for {
		s.mu.Lock()
		q, ok := s.queues[agentID]
		s.mu.Unlock()
		if !ok {
			return nil
		}
		select {
		case <-q.idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close cancels every pending reply. Later submits fail with ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for agentID := range s.queues {
		s.cancelLocked(agentID)
	}
}

func (s *Session) emit(u Update) {
	s.listenMu.RLock()
	listeners := append([]func(Update){}, s.listen...)
	s.listenMu.RUnlock()
	for _, fn := range listeners {
		fn(u)
	}
}
