package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/botflow/pkg/botflow/inbound"
)

func newProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process [file]",
		Short: "Run one webhook body through the inbound pipeline and print the events",
		Long: "Reads a webhook body from file, or stdin when no file is given, and " +
			"prints the processed events as JSON. Filter lists come from the config " +
			"file unless overridden by flags.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd.ErrOrStderr(), settings.Log)
			if err != nil {
				return err
			}

			body, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			chats := settings.Filter.ChatIDs
			if cmd.Flags().Changed("chat-ids") {
				chats, _ = cmd.Flags().GetString("chat-ids")
			}
			users := settings.Filter.UserIDs
			if cmd.Flags().Changed("user-ids") {
				users, _ = cmd.Flags().GetString("user-ids")
			}

			res := inbound.NewPipeline(inbound.WithLogger(logger)).
				Process(cmd.Context(), body, inbound.ParseFilterCriteria(chats, users))
			if res.Malformed != nil {
				return fmt.Errorf("malformed delivery: %w", res.Malformed)
			}

			events := res.Events
			if events == nil {
				events = []inbound.ProcessedEvent{}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(events)
		},
	}
	cmd.Flags().String("chat-ids", "", "Comma-separated chat id allow-list.")
	cmd.Flags().String("user-ids", "", "Comma-separated user id allow-list.")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}
