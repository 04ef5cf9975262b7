package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agents-chat/internal/catalog"
	"agents-chat/internal/hub"
)

type env struct {
	configPath string
	dataDir    string
}

func newEnv(t *testing.T, storage string) env {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	config := "storage:\n  driver: " + storage + "\nsession:\n  reply_delay: 20ms\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0o644))
	t.Setenv("AGENTS_CHAT_DATA_DIR", "")
	t.Setenv("AGENTS_CHAT_STORAGE", "")
	t.Setenv("AGENTS_CHAT_LOG_LEVEL", "")
	return env{configPath: configPath, dataDir: filepath.Join(dir, "data")}
}

func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand(&out)
	root.SetArgs(append([]string{"--config", e.configPath, "--data-dir", e.dataDir}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCategoriesJSON(t *testing.T) {
	e := newEnv(t, "memory")
	out, err := e.run(t, "categories", "--format", "json")
	require.NoError(t, err)
	var categories []catalog.Category
	require.NoError(t, json.Unmarshal([]byte(out), &categories))
	assert.Len(t, categories, 7)
}

func TestAgentsFilters(t *testing.T) {
	e := newEnv(t, "memory")

	out, err := e.run(t, "agents", "--category", "science", "--format", "json")
	require.NoError(t, err)
	var agents []catalog.Agent
	require.NoError(t, json.Unmarshal([]byte(out), &agents))
	require.NotEmpty(t, agents)
	for _, a := range agents {
		assert.Equal(t, "science", a.Category)
	}

	out, err = e.run(t, "agents", "--search", "polyglot")
	require.NoError(t, err)
	assert.Contains(t, out, "Polyglot")
	assert.NotContains(t, out, "Math Expert")
}

func TestSendHistoryClear(t *testing.T) {
	e := newEnv(t, "file")

	out, err := e.run(t, "send", "4", "review", "my", "code")
	require.NoError(t, err)
	assert.Contains(t, out, "you: review my code")
	assert.Contains(t, out, "assistant: Reply from Code Expert: review my code")

	out, err = e.run(t, "history", "4", "--format", "json")
	require.NoError(t, err)
	var view hub.ConversationView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	require.Len(t, view.Messages, 2, "history survives the process")

	out, err = e.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "Code Expert")

	out, err = e.run(t, "clear", "4")
	require.NoError(t, err)
	assert.Equal(t, "History cleared\n", out)

	out, err = e.run(t, "history", "4")
	require.NoError(t, err)
	assert.Equal(t, "no messages\n", out)
}

func TestSendBlank(t *testing.T) {
	e := newEnv(t, "memory")
	out, err := e.run(t, "send", "1", "   ")
	require.NoError(t, err)
	assert.Equal(t, "nothing to send\n", out)
}

func TestUnknownAgent(t *testing.T) {
	e := newEnv(t, "memory")
	_, err := e.run(t, "history", "999")
	require.Error(t, err)
	assert.Equal(t, "error: agent not found", errorText(err))

	_, err = e.run(t, "send", "abc", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid agent id")
}

func TestStatus(t *testing.T) {
	e := newEnv(t, "sqlite")
	out, err := e.run(t, "status", "--format", "json")
	require.NoError(t, err)
	var status hub.Status
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, "sqlite", status.Storage)
	assert.Equal(t, 23, status.Agents)
	assert.Equal(t, int64(20), status.ReplyDelayMs)

	out, err = e.run(t, "--storage", "bolt", "status")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "storage:        bolt"), out)
}

func TestEphemeralKeepsNothing(t *testing.T) {
	e := newEnv(t, "bolt")
	_, err := e.run(t, "--ephemeral", "send", "1", "hello")
	require.NoError(t, err)
	_, statErr := os.Stat(e.dataDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestBadFormat(t *testing.T) {
	e := newEnv(t, "memory")
	_, err := e.run(t, "categories", "--format", "xml")
	assert.Error(t, err)
}
