// Package cli wires the cobra command tree: the chat TUI plus one-shot commands that go through
// the same JSON-RPC methods.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"agents-chat/internal/catalog"
	"agents-chat/internal/hub"
	"agents-chat/internal/jsonrpc"
	"agents-chat/internal/types"
)

const (
	formatPretty = "pretty"
	formatJSON   = "json"
)

type options struct {
	configPath string
	dataDir    string
	storage    string
	verbose    bool
	ephemeral  bool
	format     string
	out        io.Writer
}

func Run() int {
	ctx, cancel := contextWithSignals(context.Background())
	defer cancel()
	root := NewRootCommand(os.Stdout)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorText(err))
		return 1
	}
	return 0
}

func errorText(err error) string {
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return "error: " + rpcErr.Message
	}
	return "error: " + err.Error()
}

func NewRootCommand(out io.Writer) *cobra.Command {
	o := &options{out: out}
	root := &cobra.Command{
		Use:           "agents-chat",
		Short:         "Chat with a catalog of assistant personas",
		Long:          "agents-chat keeps a bounded, persisted conversation per assistant.\n\nRun without arguments to open the interactive chat.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runTUI()
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&o.configPath, "config", defaultConfigPath(), "config file (yaml)")
	flags.StringVar(&o.dataDir, "data-dir", "", "data directory (default ~/.agents-chat)")
	flags.StringVar(&o.storage, "storage", "", "history storage: bolt, sqlite, file or memory")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")
	flags.BoolVar(&o.ephemeral, "ephemeral", false, "keep history in memory only")
	flags.StringVar(&o.format, "format", formatPretty, "output format: json|pretty")

	root.AddCommand(
		newTUICommand(o),
		newCategoriesCommand(o),
		newAgentsCommand(o),
		newHistoryCommand(o),
		newSendCommand(o),
		newClearCommand(o),
		newStatusCommand(o),
	)
	return root
}

func defaultConfigPath() string {
	if v := os.Getenv("AGENTS_CHAT_CONFIG"); v != "" {
		return v
	}
	return filepath.Join(hub.DefaultConfig().DataDir, "config.yaml")
}

// call opens the core, invokes one method and releases everything again.
func (o *options) call(ctx context.Context, method string, params, out any) error {
	server, err := o.openServer(false)
	if err != nil {
		return err
	}
	defer server.Close()
	defer func() { _ = server.Logger().Sync() }()
	return server.Caller().Invoke(ctx, method, params, out)
}

func (o *options) printJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode output")
	}
	_, err = fmt.Fprintln(o.out, string(data))
	return err
}

func (o *options) validateFormat() error {
	switch o.format {
	case formatPretty, formatJSON:
		return nil
	default:
		return errors.Errorf("unknown format %q", o.format)
	}
}

func parseAgentID(arg string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid agent id %q", arg)
	}
	return id, nil
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		String()
}

func newCategoriesCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List agent categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.validateFormat(); err != nil {
				return err
			}
			var categories []catalog.Category
			if err := o.call(cmd.Context(), "catalog/categories/list", nil, &categories); err != nil {
				return err
			}
			if o.format == formatJSON {
				return o.printJSON(categories)
			}
			rows := make([][]string, 0, len(categories))
			for _, c := range categories {
				rows = append(rows, []string{c.Key, c.Name, c.Description})
			}
			_, err := fmt.Fprintln(o.out, renderTable([]string{"KEY", "NAME", "DESCRIPTION"}, rows))
			return err
		},
	}
}

func newAgentsCommand(o *options) *cobra.Command {
	var category, query string
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List agents, optionally by category or search text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.validateFormat(); err != nil {
				return err
			}
			var agents []catalog.Agent
			var err error
			if query != "" {
				err = o.call(cmd.Context(), "catalog/agents/search", map[string]string{"query": query}, &agents)
			} else {
				err = o.call(cmd.Context(), "catalog/agents/list", map[string]string{"category": category}, &agents)
			}
			if err != nil {
				return err
			}
			if o.format == formatJSON {
				return o.printJSON(agents)
			}
			rows := make([][]string, 0, len(agents))
			for _, a := range agents {
				rows = append(rows, []string{strconv.Itoa(a.ID), a.Name, a.Category, a.Description})
			}
			_, err = fmt.Fprintln(o.out, renderTable([]string{"ID", "NAME", "CATEGORY", "DESCRIPTION"}, rows))
			return err
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "category key")
	cmd.Flags().StringVarP(&query, "search", "s", "", "match name, description or tags")
	return cmd
}

func newHistoryCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history [agent-id]",
		Short: "Show one conversation, or list stored conversations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.validateFormat(); err != nil {
				return err
			}
			if len(args) == 0 {
				var list []hub.ConversationSummary
				if err := o.call(cmd.Context(), "conversation/list", nil, &list); err != nil {
					return err
				}
				if o.format == formatJSON {
					return o.printJSON(list)
				}
				rows := make([][]string, 0, len(list))
				for _, c := range list {
					rows = append(rows, []string{strconv.Itoa(c.AgentID), c.Name, strconv.Itoa(c.Messages), formatTimestamp(c.LastTimestamp)})
				}
				_, err := fmt.Fprintln(o.out, renderTable([]string{"ID", "AGENT", "MESSAGES", "LAST"}, rows))
				return err
			}
			id, err := parseAgentID(args[0])
			if err != nil {
				return err
			}
			var view hub.ConversationView
			if err := o.call(cmd.Context(), "conversation/load", map[string]int{"agentId": id}, &view); err != nil {
				return err
			}
			if o.format == formatJSON {
				return o.printJSON(view)
			}
			return o.printMessages(view.Messages)
		},
	}
}

func newSendCommand(o *options) *cobra.Command {
	var noWait bool
	cmd := &cobra.Command{
		Use:   "send <agent-id> <message>",
		Short: "Send a message and wait for the reply",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.validateFormat(); err != nil {
				return err
			}
			id, err := parseAgentID(args[0])
			if err != nil {
				return err
			}
			params := map[string]any{"agentId": id, "text": strings.Join(args[1:], " "), "wait": !noWait}
			var res hub.SubmitResult
			if err := o.call(cmd.Context(), "session/submit", params, &res); err != nil {
				return err
			}
			if o.format == formatJSON {
				return o.printJSON(res)
			}
			if res.Skipped {
				_, err := fmt.Fprintln(o.out, "nothing to send")
				return err
			}
			// the submitted turn and what followed it
			start := 0
			for i, msg := range res.Messages {
				if msg.ID == res.Message.ID {
					start = i
				}
			}
			return o.printMessages(res.Messages[start:])
		},
	}
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "store the message without waiting for the reply")
	return cmd
}

func newClearCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <agent-id>",
		Short: "Delete the conversation with an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.validateFormat(); err != nil {
				return err
			}
			id, err := parseAgentID(args[0])
			if err != nil {
				return err
			}
			var res map[string]any
			if err := o.call(cmd.Context(), "conversation/clear", map[string]int{"agentId": id}, &res); err != nil {
				return err
			}
			if o.format == formatJSON {
				return o.printJSON(res)
			}
			_, err = fmt.Fprintln(o.out, "History cleared")
			return err
		},
	}
}

func newStatusCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show storage and catalog status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.validateFormat(); err != nil {
				return err
			}
			var status hub.Status
			if err := o.call(cmd.Context(), "hub/status", nil, &status); err != nil {
				return err
			}
			if o.format == formatJSON {
				return o.printJSON(status)
			}
			lines := []string{
				fmt.Sprintf("version:        %s", status.Version),
				fmt.Sprintf("storage:        %s", status.Storage),
				fmt.Sprintf("data dir:       %s", status.DataDir),
				fmt.Sprintf("categories:     %d", status.Categories),
				fmt.Sprintf("agents:         %d", status.Agents),
				fmt.Sprintf("conversations:  %d", status.Conversations),
				fmt.Sprintf("reply delay:    %s", time.Duration(status.ReplyDelayMs)*time.Millisecond),
				fmt.Sprintf("max messages:   %d", status.MaxMessages),
			}
			_, err := fmt.Fprintln(o.out, strings.Join(lines, "\n"))
			return err
		},
	}
}

func (o *options) printMessages(msgs []types.Message) error {
	if len(msgs) == 0 {
		_, err := fmt.Fprintln(o.out, "no messages")
		return err
	}
	for _, msg := range msgs {
		who := "you"
		if msg.Role == types.RoleAssistant {
			who = "assistant"
		}
		if _, err := fmt.Fprintf(o.out, "[%s] %s: %s\n", formatTimestamp(msg.Timestamp), who, msg.Content); err != nil {
			return err
		}
	}
	return nil
}

func formatTimestamp(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04:05")
}
