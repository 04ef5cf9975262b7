// Package catalog holds the read-only registry of assistant personas and the categories they are grouped in.
package catalog

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var ErrAgentNotFound = errors.New("agent not found")

type Category struct {
	Key         string `json:"key" yaml:"key"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

type Agent struct {
	ID          int      `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Category    string   `json:"category" yaml:"category"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Group is a category together with its agents in catalog order.
type Group struct {
	Category Category `json:"category"`
	Agents   []Agent  `json:"agents"`
}

// Catalog is immutable after New; every accessor hands out copies.
type Catalog struct {
	categories []Category
	agents     []Agent
	byID       map[int]int
	byCategory map[string]int
}

func New(categories []Category, agents []Agent) (*Catalog, error) {
	c := &Catalog{
		categories: make([]Category, 0, len(categories)),
		agents:     make([]Agent, 0, len(agents)),
		byID:       make(map[int]int, len(agents)),
		byCategory: make(map[string]int, len(categories)),
	}
	for _, cat := range categories {
		key := strings.TrimSpace(cat.Key)
		if key == "" {
			return nil, errors.New("category key required")
		}
		if _, dup := c.byCategory[key]; dup {
			return nil, errors.Errorf("duplicate category %q", key)
		}
		if strings.TrimSpace(cat.Name) == "" {
			return nil, errors.Errorf("category %q: name required", key)
		}
		cat.Key = key
		c.byCategory[key] = len(c.categories)
		c.categories = append(c.categories, cat)
	}
	for _, agent := range agents {
		if agent.ID <= 0 {
			return nil, errors.Errorf("agent %q: id must be positive, got %d", agent.Name, agent.ID)
		}
		if _, dup := c.byID[agent.ID]; dup {
			return nil, errors.Errorf("duplicate agent id %d", agent.ID)
		}
		if strings.TrimSpace(agent.Name) == "" {
			return nil, errors.Errorf("agent %d: name required", agent.ID)
		}
		if _, ok := c.byCategory[agent.Category]; !ok {
			return nil, errors.Errorf("agent %d: unknown category %q", agent.ID, agent.Category)
		}
		agent.Tags = append([]string(nil), agent.Tags...)
		c.byID[agent.ID] = len(c.agents)
		c.agents = append(c.agents, agent)
	}
	return c, nil
}

func (c *Catalog) ListCategories() []Category {
	return append([]Category(nil), c.categories...)
}

func (c *Catalog) Category(key string) (Category, bool) {
	idx, ok := c.byCategory[key]
	if !ok {
		return Category{}, false
	}
	return c.categories[idx], true
}

// ListAgents returns every agent when categoryKey is empty, otherwise only that category's agents.
func (c *Catalog) ListAgents(categoryKey string) []Agent {
	out := make([]Agent, 0, len(c.agents))
	for _, agent := range c.agents {
		if categoryKey != "" && agent.Category != categoryKey {
			continue
		}
		out = append(out, agent.clone())
	}
	return out
}

func (c *Catalog) GetAgent(id int) (Agent, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Agent{}, false
	}
	return c.agents[idx].clone(), true
}

// MustAgent is GetAgent for callers that want an error value.
func (c *Catalog) MustAgent(id int) (Agent, error) {
	agent, ok := c.GetAgent(id)
	if !ok {
		return Agent{}, errors.Wrapf(ErrAgentNotFound, "id %d", id)
	}
	return agent, nil
}

// Search matches query case-insensitively against name, description and tags.
func (c *Catalog) Search(query string) []Agent {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return c.ListAgents("")
	}
	out := make([]Agent, 0)
	for _, agent := range c.agents {
		if agent.matches(query) {
			out = append(out, agent.clone())
		}
	}
	return out
}

func (c *Catalog) Grouped() []Group {
	groups := make([]Group, 0, len(c.categories))
	for _, cat := range c.categories {
		groups = append(groups, Group{Category: cat, Agents: c.ListAgents(cat.Key)})
	}
	return groups
}

func (c *Catalog) Len() int {
	return len(c.agents)
}

func (a Agent) matches(query string) bool {
	if strings.Contains(strings.ToLower(a.Name), query) || strings.Contains(strings.ToLower(a.Description), query) {
		return true
	}
	for _, tag := range a.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

func (a Agent) clone() Agent {
	a.Tags = append([]string(nil), a.Tags...)
	return a
}

func (a Agent) String() string {
	return fmt.Sprintf("%d:%s", a.ID, a.Name)
}
