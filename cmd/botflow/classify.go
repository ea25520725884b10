package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	bferrors "github.com/randalmurphal/botflow/pkg/botflow/errors"
)

type classifyOutput struct {
	Category          string         `json:"category"`
	Status            *int           `json:"status,omitempty"`
	RetryAfter        *int           `json:"retry_after,omitempty"`
	ShouldRetry       bool           `json:"should_retry"`
	DelayMs           int64          `json:"delay_ms"`
	AttemptsRemaining int            `json:"attempts_remaining"`
	Message           string         `json:"message"`
	TextCode          string         `json:"text_code"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

func newClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [file]",
		Short: "Classify an outbound API error and print the retry decision",
		Long: "Reads an error as JSON (an API error object or a plain string) from " +
			"file or stdin and prints its category, retry decision and operator message.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			var raw any
			if err := json.Unmarshal(data, &raw); err != nil {
				return fmt.Errorf("parse error json: %w", err)
			}

			op, _ := cmd.Flags().GetString("operation")
			attempt, _ := cmd.Flags().GetInt("attempt")
			maxAttempts := settings.Retry.MaxRetries

			c := bferrors.Classify(raw)
			decision := retryPolicy(settings.Retry).Decide(c, attempt, maxAttempts)
			f := bferrors.Format(c, bferrors.Operation{Name: op, Attempt: attempt, MaxAttempts: maxAttempts})

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(classifyOutput{
				Category:          c.Category.String(),
				Status:            c.Status,
				RetryAfter:        c.RetryAfter,
				ShouldRetry:       decision.ShouldRetry,
				DelayMs:           decision.DelayMs(),
				AttemptsRemaining: decision.AttemptsRemaining,
				Message:           f.Message,
				TextCode:          f.Err.TextCode,
				Metadata:          f.Err.Metadata,
			})
		},
	}
	cmd.Flags().String("operation", "", "Name of the failed operation.")
	cmd.Flags().Int("attempt", 0, "Retries already made.")
	return cmd
}
