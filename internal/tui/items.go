package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"agents-chat/internal/catalog"
)

type agentItem struct {
	agent    catalog.Agent
	category catalog.Category
	pending  bool
}

func (i agentItem) Title() string {
	if i.pending {
		return i.agent.Name + " …"
	}
	return i.agent.Name
}

func (i agentItem) Description() string {
	return fmt.Sprintf("%s · %s", i.category.Name, i.agent.Description)
}

func (i agentItem) FilterValue() string {
	parts := []string{i.agent.Name, i.agent.Description, i.category.Name}
	parts = append(parts, i.agent.Tags...)
	return strings.Join(parts, " ")
}

// buildAgentItems flattens the catalog groups so agents of a category stay together.
func buildAgentItems(groups []catalog.Group, pending map[int]bool) []list.Item {
	items := make([]list.Item, 0)
	for _, group := range groups {
		for _, agent := range group.Agents {
			items = append(items, agentItem{agent: agent, category: group.Category, pending: pending[agent.ID]})
		}
	}
	return items
}

func itemIndex(items []list.Item, agentID int) int {
	for i, item := range items {
		if it, ok := item.(agentItem); ok && it.agent.ID == agentID {
			return i
		}
	}
	return -1
}
