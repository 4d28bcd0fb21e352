package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	sqlchatcli "github.com/yubzen/sqlchat/internal/cli"
)

func restoreTerminalState() {
	fmt.Fprint(os.Stderr, "\x1b[?25h\x1b[0m")
}

func newRootCmd() *cobra.Command {
	flags := &sqlchatcli.Flags{}
	rootCmd := &cobra.Command{
		Use:           "sqlchat",
		Short:         "Ask questions about a SQL database in plain language",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sqlchatcli.RunInteractive(cmd.Context(), flags)
		},
	}
	flags.Register(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		sqlchatcli.NewAskCmd(flags),
		sqlchatcli.NewSchemaCmd(flags),
		sqlchatcli.NewAuthCmd(flags),
		sqlchatcli.NewHistoryCmd(flags),
		sqlchatcli.NewDoctorCmd(flags),
		sqlchatcli.NewConfigCmd(flags),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		restoreTerminalState()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	restoreTerminalState()
}
