package main

import (
	"github.com/ledgermirror/ledgerd/internal/service"

	"github.com/spf13/cobra"
)

func merchantsCmd() *cobra.Command {
	var limit int
	var includeDeleted bool

	cmd := &cobra.Command{
		Use:   "merchants [query]",
		Short: "Rank cached merchants by transaction count",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}

			application, err := buildApp()
			if err != nil {
				return err
			}
			defer application.Close()

			merchants, err := application.engine.SearchMerchants(cmd.Context(), query, limit, includeDeleted)
			if err != nil {
				return err
			}
			return printJSON(merchants)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum groups to return (max 200)")
	cmd.Flags().BoolVar(&includeDeleted, "include-deleted", false, "count soft-deleted transactions")
	return cmd
}

func suggestCmd() *cobra.Command {
	var mode string
	var limit int
	var refreshCategories bool

	cmd := &cobra.Command{
		Use:   "suggest <merchant>",
		Short: "Suggest categories from a merchant's transaction history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp()
			if err != nil {
				return err
			}
			defer application.Close()

			suggestions, err := application.engine.SuggestCategoriesForMerchant(
				cmd.Context(), args[0], service.MerchantMatchMode(mode), limit, refreshCategories)
			if err != nil {
				return err
			}
			return printJSON(suggestions)
		},
	}

	cmd.Flags().StringVar(&mode, "match", string(service.MatchExact), "merchant match mode (exact, contains)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum suggestions to return (max 20)")
	cmd.Flags().BoolVar(&refreshCategories, "refresh-categories", false, "resync categories before suggesting")
	return cmd
}
