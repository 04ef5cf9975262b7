package hub

import (
	"context"
	"sync"

	"agents-chat/internal/catalog"
	"agents-chat/internal/conversation"
	"agents-chat/internal/session"
	"agents-chat/internal/types"
	"agents-chat/internal/utils"
)

// Navigator tracks which agent the user is looking at. Moving away from an agent leaves its
// pending reply running unless cancelOnSwitch is set.
type Navigator struct {
	mu             sync.Mutex
	catalog        *catalog.Catalog
	store          *conversation.Store
	session        *session.Session
	logger         *utils.Logger
	cancelOnSwitch bool
	active         int
	hasActive      bool
	onSelect       func(agentID int)
}

func NewNavigator(cat *catalog.Catalog, store *conversation.Store, sess *session.Session, logger *utils.Logger) *Navigator {
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &Navigator{catalog: cat, store: store, session: sess, logger: logger}
}

func (n *Navigator) SetCancelOnSwitch(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelOnSwitch = enabled
}

// OnSelect registers fn to run after every successful selection.
func (n *Navigator) OnSelect(fn func(agentID int)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onSelect = fn
}

// Select makes id the active agent and returns its conversation. Unknown ids leave the
// selection unchanged.
func (n *Navigator) Select(ctx context.Context, id int) ([]types.Message, error) {
	if _, err := n.catalog.MustAgent(id); err != nil {
		return nil, err
	}
	n.mu.Lock()
	prev, hadPrev := n.active, n.hasActive
	n.active, n.hasActive = id, true
	teardown := n.cancelOnSwitch && hadPrev && prev != id
	onSelect := n.onSelect
	n.mu.Unlock()

	if teardown {
		n.session.Teardown(prev)
	}
	if onSelect != nil {
		onSelect(id)
	}
	n.logger.Debugf("selected agent %d", id)
	return n.store.Load(ctx, id), nil
}

func (n *Navigator) Deselect() {
	n.mu.Lock()
	prev, hadPrev := n.active, n.hasActive
	n.active, n.hasActive = 0, false
	teardown := n.cancelOnSwitch && hadPrev
	n.mu.Unlock()
	if teardown {
		n.session.Teardown(prev)
	}
}

func (n *Navigator) Active() (int, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.active, n.hasActive
}
