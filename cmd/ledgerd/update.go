package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <patch-json>",
		Short: "Patch a transaction and write it back upstream",
		Long: `Deep-merges a JSON patch into the cached record, validates the merged
record against the upstream write contract, submits it, and resyncs.
Nested objects merge key-by-key; arrays and scalars replace wholesale.

Example:
  ledgerd update txn-42 '{"coa":{"type":"CATEGORY","id":"7"}}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch map[string]any
			if err := json.Unmarshal([]byte(args[1]), &patch); err != nil {
				return fmt.Errorf("invalid patch JSON: %w", err)
			}

			application, err := buildApp()
			if err != nil {
				return err
			}
			defer application.Close()

			txn, err := application.engine.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			return printJSON(txn)
		},
	}
}
