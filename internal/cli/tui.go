package cli

import (
	"github.com/spf13/cobra"

	"agents-chat/internal/tui"
)

func newTUICommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive chat (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runTUI()
		},
	}
}

func (o *options) runTUI() error {
	server, err := o.openServer(true)
	if err != nil {
		return err
	}
	defer server.Close()
	defer func() { _ = server.Logger().Sync() }()
	server.Logger().Infof("starting tui with %d agents", server.Catalog().Len())
	return tui.Run(server)
}
