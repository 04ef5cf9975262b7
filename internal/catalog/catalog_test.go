package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func agentIDs(agents []Agent) []int {
	ids := make([]int, 0, len(agents))
	for _, a := range agents {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	cats := c.ListCategories()
	require.Len(t, cats, 7)
	keys := make([]string, 0, len(cats))
	for _, cat := range cats {
		keys = append(keys, cat.Key)
	}
	assert.Equal(t, []string{"general", "development", "creative", "analysis", "education", "business", "science"}, keys)
	assert.Equal(t, 23, c.Len())

	for _, agent := range c.ListAgents("") {
		_, ok := c.Category(agent.Category)
		assert.True(t, ok, "agent %s references unknown category", agent)
	}
}

func TestListAgentsByCategoryPreservesOrder(t *testing.T) {
	c := Default()

	dev := c.ListAgents("development")
	assert.Equal(t, []int{4, 5, 6, 7}, agentIDs(dev))
	for _, a := range dev {
		assert.Equal(t, "development", a.Category)
	}

	assert.Empty(t, c.ListAgents("nope"))
	assert.Len(t, c.ListAgents(""), 23)
}

func TestGetAgent(t *testing.T) {
	c := Default()

	agent, ok := c.GetAgent(4)
	require.True(t, ok)
	assert.Equal(t, "Code Expert", agent.Name)

	_, ok = c.GetAgent(999)
	assert.False(t, ok)

	_, err := c.MustAgent(999)
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestAccessorsReturnCopies(t *testing.T) {
	c := Default()

	agent, _ := c.GetAgent(1)
	agent.Tags[0] = "mutated"
	agent.Name = "mutated"

	again, _ := c.GetAgent(1)
	assert.Equal(t, "Q&A Assistant", again.Name)
	assert.NotEqual(t, "mutated", again.Tags[0])

	cats := c.ListCategories()
	cats[0].Name = "mutated"
	first, _ := c.Category("general")
	assert.Equal(t, "General", first.Name)
}

func TestSearch(t *testing.T) {
	c := Default()

	assert.Equal(t, []int{4}, agentIDs(c.Search("CODE EXPERT")))
	assert.Equal(t, []int{21, 23}, agentIDs(c.Search("experiments")))
	assert.Len(t, c.Search("  "), 23)
	assert.Empty(t, c.Search("zzz"))
}

func TestGrouped(t *testing.T) {
	groups := Default().Grouped()
	require.Len(t, groups, 7)
	assert.Equal(t, "science", groups[6].Category.Key)
	assert.Equal(t, []int{21, 22, 23}, agentIDs(groups[6].Agents))
}

func TestNewValidation(t *testing.T) {
	cats := []Category{{Key: "general", Name: "General"}}

	tests := []struct {
		name   string
		cats   []Category
		agents []Agent
	}{
		{"duplicate id", cats, []Agent{{ID: 1, Name: "a", Category: "general"}, {ID: 1, Name: "b", Category: "general"}}},
		{"zero id", cats, []Agent{{ID: 0, Name: "a", Category: "general"}}},
		{"unknown category", cats, []Agent{{ID: 1, Name: "a", Category: "missing"}}},
		{"blank name", cats, []Agent{{ID: 1, Name: " ", Category: "general"}}},
		{"duplicate category", append(cats, Category{Key: "general", Name: "Again"}), nil},
		{"blank category key", []Category{{Key: "", Name: "x"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cats, tt.agents)
			assert.Error(t, err)
		})
	}
}

func TestFileRoundTrip(t *testing.T) {
	original := Default()
	data, err := Marshal(original)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	if diff := cmp.Diff(original.ListAgents(""), loaded.ListAgents("")); diff != "" {
		t.Errorf("agents mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(original.ListCategories(), loaded.ListCategories()); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	_, err := Parse([]byte("categories: []\n"))
	assert.Error(t, err)

	_, err = Parse([]byte(`
categories:
  - key: general
    name: General
agents:
  - id: 1
    name: Helper
    category: elsewhere
`))
	assert.Error(t, err)

	c, err := Parse([]byte(`
categories:
  - key: general
    name: General
agents:
  - id: 7
    name: Helper
    category: general
    tags: [help]
`))
	require.NoError(t, err)
	agent, ok := c.GetAgent(7)
	require.True(t, ok)
	assert.Equal(t, []string{"help"}, agent.Tags)
}
