package hub

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"

	"agents-chat/internal/catalog"
	"agents-chat/internal/clock"
	"agents-chat/internal/conversation"
	"agents-chat/internal/jsonrpc"
	"agents-chat/internal/kv"
	"agents-chat/internal/session"
	"agents-chat/internal/types"
	"agents-chat/internal/utils"
)

const Version = "1.0.0"

// Server owns the core components and exposes them as JSON-RPC methods to the CLI and TUI.
type Server struct {
	cfg        Config
	logger     *utils.Logger
	catalog    *catalog.Catalog
	kv         kv.Store
	ownsKV     bool
	store      *conversation.Store
	session    *session.Session
	navigator  *Navigator
	handler    *jsonrpc.Handler
	clock      clock.Clock
	startTime  time.Time
	settingsMu sync.Mutex
	settings   Settings
}

type Option func(*serverOptions)

type serverOptions struct {
	clock   clock.Clock
	kv      kv.Store
	catalog *catalog.Catalog
	reply   session.ReplyFunc
}

func WithClock(c clock.Clock) Option { return func(o *serverOptions) { o.clock = c } }

// WithKV injects a backend. The caller keeps ownership and closes it.
func WithKV(store kv.Store) Option { return func(o *serverOptions) { o.kv = store } }

func WithCatalog(c *catalog.Catalog) Option { return func(o *serverOptions) { o.catalog = c } }

func WithReply(fn session.ReplyFunc) Option { return func(o *serverOptions) { o.reply = fn } }

func NewServer(cfg Config, logger *utils.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = utils.NopLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clock.Real()
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		handler: jsonrpc.NewHandler(),
		clock:   o.clock,
	}
	s.startTime = o.clock.Now()

	s.catalog = o.catalog
	if s.catalog == nil {
		cat, err := loadCatalog(cfg.CatalogPath)
		if err != nil {
			return nil, err
		}
		s.catalog = cat
	}

	s.kv = o.kv
	if s.kv == nil {
		if !cfg.Ephemeral {
			if err := s.EnsureDataDir(); err != nil {
				return nil, err
			}
		}
		store, err := kv.Open(cfg.StorageOptions())
		if err != nil {
			return nil, errors.Wrap(err, "open history storage")
		}
		s.kv = store
		s.ownsKV = true
	}

	s.store = conversation.New(s.kv, logger.Named("conversation"), conversation.WithMaxMessages(cfg.Session.MaxMessages))
	s.session = session.New(s.store, s.catalog, session.Options{
		ReplyDelay: cfg.Session.ReplyDelay,
		Clock:      o.clock,
		Reply:      o.reply,
		Logger:     logger.Named("session"),
	})
	s.navigator = NewNavigator(s.catalog, s.store, s.session, logger.Named("navigator"))
	s.navigator.SetCancelOnSwitch(cfg.Session.CancelOnSwitch)
	s.navigator.OnSelect(s.UpdateLastAgent)

	if err := s.LoadSettings(); err != nil {
		s.logger.Warnf("failed to load settings: %v", err)
	}
	s.RegisterHandlers()
	return s, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.LoadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}
	return cat, nil
}

func (s *Server) RegisterHandlers() {
	s.handler.Register("hub/status", s.handleHubStatus)
	s.handler.Register("catalog/categories/list", s.handleCategoriesList)
	s.handler.Register("catalog/agents/list", s.handleAgentsList)
	s.handler.Register("catalog/agents/get", s.handleAgentsGet)
	s.handler.Register("catalog/agents/search", s.handleAgentsSearch)
	s.handler.Register("conversation/load", s.handleConversationLoad)
	s.handler.Register("conversation/clear", s.handleConversationClear)
	s.handler.Register("conversation/list", s.handleConversationList)
	s.handler.Register("session/submit", s.handleSessionSubmit)
	s.handler.Register("session/cancel", s.handleSessionCancel)
	s.handler.Register("selection/select", s.handleSelectionSelect)
	s.handler.Register("selection/active", s.handleSelectionActive)
	s.handler.Register("selection/clear", s.handleSelectionClear)
}

func (s *Server) Handler() *jsonrpc.Handler { return s.handler }

func (s *Server) Caller() *LocalCaller { return NewLocalCaller(s.handler) }

func (s *Server) Config() Config { return s.cfg }

func (s *Server) Catalog() *catalog.Catalog { return s.catalog }

func (s *Server) Store() *conversation.Store { return s.store }

func (s *Server) Session() *session.Session { return s.session }

func (s *Server) Navigator() *Navigator { return s.navigator }

func (s *Server) Logger() *utils.Logger { return s.logger }

// Close drops pending replies and releases the storage backend.
func (s *Server) Close() error {
	s.session.Close()
	if s.ownsKV {
		return s.kv.Close()
	}
	return nil
}

func (s *Server) EnsureDataDir() error {
	if s.cfg.DataDir == "" {
		return errors.New("data dir required")
	}
	return errors.Wrap(os.MkdirAll(s.cfg.DataDir, 0o755), "create data dir")
}

type Status struct {
	Version        string `json:"version"`
	Uptime         int    `json:"uptime"`
	Storage        string `json:"storage"`
	DataDir        string `json:"dataDir,omitempty"`
	Categories     int    `json:"categories"`
	Agents         int    `json:"agents"`
	Conversations  int    `json:"conversations"`
	PendingReplies int    `json:"pendingReplies"`
	ActiveAgent    int    `json:"activeAgent,omitempty"`
	ReplyDelayMs   int64  `json:"replyDelayMs"`
	MaxMessages    int    `json:"maxMessages"`
}

// ConversationView is a conversation snapshot together with its reply state.
type ConversationView struct {
	AgentID  int             `json:"agentId"`
	Messages []types.Message `json:"messages"`
	State    session.State   `json:"state"`
	Pending  int             `json:"pending"`
}

type ConversationSummary struct {
	AgentID       int    `json:"agentId"`
	Name          string `json:"name"`
	Messages      int    `json:"messages"`
	LastTimestamp int64  `json:"lastTimestamp,omitempty"`
}

type SubmitResult struct {
	Message  *types.Message  `json:"message,omitempty"`
	Skipped  bool            `json:"skipped"`
	Messages []types.Message `json:"messages"`
	State    session.State   `json:"state"`
}

type Selection struct {
	AgentID  int             `json:"agentId,omitempty"`
	Active   bool            `json:"active"`
	Messages []types.Message `json:"messages,omitempty"`
}

func (s *Server) handleHubStatus(ctx context.Context, params json.RawMessage) (any, *jsonrpc.RPCError) {
	ids, err := s.store.Conversations(ctx)
	if err != nil {
		return nil, rpcError(err)
	}
	storage := s.cfg.StorageOptions().Driver
	if storage == "" {
		storage = kv.DriverBolt
	}
	status := Status{
		Version:        Version,
		Uptime:         int(s.clock.Now().Sub(s.startTime).Seconds()),
		Storage:        storage,
		Categories:     len(s.catalog.ListCategories()),
		Agents:         s.catalog.Len(),
		Conversations:  len(ids),
		PendingReplies: s.session.PendingTotal(),
		ReplyDelayMs:   s.replyDelay().Milliseconds(),
		MaxMessages:    s.store.MaxMessages(),
	}
	if !s.cfg.Ephemeral {
		status.DataDir = s.cfg.DataDir
	}
	if id, ok := s.navigator.Active(); ok {
		status.ActiveAgent = id
	}
	return status, nil
}

func (s *Server) replyDelay() time.Duration {
	if s.cfg.Session.ReplyDelay <= 0 {
		return session.DefaultReplyDelay
	}
	return s.cfg.Session.ReplyDelay
}

func (s *Server) handleCategoriesList(ctx context.Context, params json.RawMessage) (any, *jsonrpc.RPCError) {
	return s.catalog.ListCategories(), nil
}

func (s *Server) handleAgentsList(ctx context.Context, params json.RawMessage) (any, *jsonrpc.RPCError) {
	var req struct {
		Category string `json:"category"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, invalidParams("invalid params")
		}
	}
	if req.Category != "" {
		if _, ok := s.catalog.Category(req.Category); !ok {
			return nil, invalidParams("unknown category")
		}
	}
	return s.catalog.ListAgents(req.Category), nil
}

func (s *Server) handleAgentsGet(ctx context.Context, params json.RawMessage) (any, *jsonrpc.RPCError) {
	id, rpcErr := decodeAgentID(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	agent, err := s.catalog.MustAgent(id)
	if err != nil {
		return nil, rpcError(err)
	}
	return agent, nil
}

func (s *Server) handleAgentsSearch(ctx context.Context, params json.RawMessage) (any, *jsonrpc.RPCError) {
	var req struct {
		Query string `json:"query"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, invalidParams("invalid params")
		}
	}
	return s.catalog.Search(req.Query), nil
}

func (s *Server) handleConversationLoad(ctx context.Context, params json.RawMessage) (any, *jsonrpc.RPCError) {
	id, rpcErr := s.knownAgentID(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.view(ctx, id), nil
}

func (s *Server) view(ctx context.Context, id int) ConversationView {
	return ConversationView{
		AgentID:  id,
		Messages: s.store.Load(ctx, id),
		State:    s.session.State(id),
		Pending:  s.session.Pending(id),
	}
}

func (s *Server) handleConversationClear(ctx context.Context, params json.RawMessage) (any, *jsonrpc.RPCError) {
	id, rpcErr := s.knownAgentID(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.session.Clear(ctx, id); err != nil {
		return nil, rpcError(err)
	}
	return map[string]any{"agentId": id, "cleared": true}, nil
}

func (s *Server) handleConversationList(ctx context.Context, params json.RawMessage) (any, *jsonrpc.RPCError) {
	ids, err := s.store.Conversations(ctx)
	if err != nil {
		return nil, rpcError(err)
	}
	// catalog order, so the listing matches the sidebar
	have := make(map[int]bool, len(ids))
	for _, id := range ids {
		have[id] = true
	}
	result := make([]ConversationSummary, 0, len(ids))
	for _, agent := range s.catalog.ListAgents("") {
		if !have[agent.ID] {
			continue
		}
		msgs := s.store.Load(ctx, agent.ID)
		if len(msgs) == 0 {
			continue
		}
		result = append(result, ConversationSummary{
			AgentID:       agent.ID,
			Name:          agent.Name,
			Messages:      len(msgs),
			LastTimestamp: msgs[len(msgs)-1].Timestamp,
		})
	}
	return result, nil
}

func (s *Server) handleSessionSubmit(ctx context.Context, params json.RawMessage) (any, *jsonrpc.RPCError) {
	var req struct {
		AgentID int    `json:"agentId"`
		Text    string `json:"text"`
		Wait    bool   `json:"wait"`
	}
	if err := json.Unmarshal(params, &req); err != nil || req.AgentID <= 0 {
		return nil, invalidParams("agentId required")
	}
	msg, err := s.session.Submit(ctx, req.AgentID, req.Text)
	if err != nil {
		return nil, rpcError(err)
	}
	if msg != nil && req.Wait {
		if err := s.session.WaitIdle(ctx, req.AgentID); err != nil {
			return nil, rpcError(err)
		}
	}
	view := s.view(ctx, req.AgentID)
	return SubmitResult{Message: msg, Skipped: msg == nil, Messages: view.Messages, State: view.State}, nil
}

func (s *Server) handleSessionCancel(ctx context.Context, params json.RawMessage) (any, *jsonrpc.RPCError) {
	id, rpcErr := s.knownAgentID(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return map[string]any{"agentId": id, "canceled": s.session.Cancel(id)}, nil
}

func (s *Server) handleSelectionSelect(ctx context.Context, params json.RawMessage) (any, *jsonrpc.RPCError) {
	id, rpcErr := decodeAgentID(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	msgs, err := s.navigator.Select(ctx, id)
	if err != nil {
		return nil, rpcError(err)
	}
	return Selection{AgentID: id, Active: true, Messages: msgs}, nil
}

func (s *Server) handleSelectionActive(ctx context.Context, params json.RawMessage) (any, *jsonrpc.RPCError) {
	id, ok := s.navigator.Active()
	return Selection{AgentID: id, Active: ok}, nil
}

func (s *Server) handleSelectionClear(ctx context.Context, params json.RawMessage) (any, *jsonrpc.RPCError) {
	s.navigator.Deselect()
	return Selection{}, nil
}

func decodeAgentID(params json.RawMessage) (int, *jsonrpc.RPCError) {
	var req struct {
		AgentID int `json:"agentId"`
	}
	if err := json.Unmarshal(params, &req); err != nil || req.AgentID <= 0 {
		return 0, invalidParams("agentId required")
	}
	return req.AgentID, nil
}

func (s *Server) knownAgentID(params json.RawMessage) (int, *jsonrpc.RPCError) {
	id, rpcErr := decodeAgentID(params)
	if rpcErr != nil {
		return 0, rpcErr
	}
	if _, ok := s.catalog.GetAgent(id); !ok {
		return 0, &jsonrpc.RPCError{Code: jsonrpc.ErrAgentNotFound, Message: "agent not found"}
	}
	return id, nil
}

func invalidParams(msg string) *jsonrpc.RPCError {
	return &jsonrpc.RPCError{Code: jsonrpc.ErrInvalidParams, Message: msg}
}

func rpcError(err error) *jsonrpc.RPCError {
	switch {
	case errors.Is(err, catalog.ErrAgentNotFound), errors.Is(err, session.ErrUnknownAgent):
		return &jsonrpc.RPCError{Code: jsonrpc.ErrAgentNotFound, Message: "agent not found"}
	case errors.Is(err, session.ErrClosed):
		return &jsonrpc.RPCError{Code: jsonrpc.ErrSessionClosed, Message: "session closed"}
	default:
		return &jsonrpc.RPCError{Code: jsonrpc.ErrInternalError, Message: err.Error()}
	}
}
