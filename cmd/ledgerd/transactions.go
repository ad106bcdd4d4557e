package main

import (
	"fmt"
	"time"

	"github.com/ledgermirror/ledgerd/internal/engine"
	"github.com/ledgermirror/ledgerd/internal/service"

	"github.com/spf13/cobra"
)

// listFlags are the filter/pagination flags shared by the transaction list
// commands.
type listFlags struct {
	account        string
	state          string
	startDate      string
	endDate        string
	cursor         string
	limit          int
	includeDeleted bool
	forceRefresh   bool
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.account, "account", "", "filter by account id")
	cmd.Flags().StringVar(&f.state, "state", "", "filter by lifecycle state")
	cmd.Flags().StringVar(&f.startDate, "start", "", "earliest posting date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.endDate, "end", "", "latest posting date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.cursor, "cursor", "", "continue from a previous page")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "page size (max 200)")
	cmd.Flags().BoolVar(&f.includeDeleted, "include-deleted", false, "include soft-deleted transactions")
	cmd.Flags().BoolVar(&f.forceRefresh, "refresh", false, "sync before reading")
}

func (f *listFlags) params() (engine.ListParams, error) {
	filter := service.TransactionFilter{
		AccountID:      f.account,
		State:          f.state,
		IncludeDeleted: f.includeDeleted,
	}

	if f.startDate != "" {
		start, err := time.Parse(time.DateOnly, f.startDate)
		if err != nil {
			return engine.ListParams{}, fmt.Errorf("invalid start date %q: %w", f.startDate, err)
		}
		filter.StartDate = &start
	}
	if f.endDate != "" {
		end, err := time.Parse(time.DateOnly, f.endDate)
		if err != nil {
			return engine.ListParams{}, fmt.Errorf("invalid end date %q: %w", f.endDate, err)
		}
		filter.EndDate = &end
	}

	return engine.ListParams{
		Filter:       filter,
		Cursor:       f.cursor,
		Limit:        f.limit,
		ForceRefresh: f.forceRefresh,
	}, nil
}

func listCmd() *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := flags.params()
			if err != nil {
				return err
			}

			application, err := buildApp()
			if err != nil {
				return err
			}
			defer application.Close()

			page, err := application.engine.List(cmd.Context(), params)
			if err != nil {
				return err
			}
			return printJSON(page)
		},
	}

	flags.register(cmd)
	return cmd
}

func searchCmd() *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search cached transactions by payee or memo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := flags.params()
			if err != nil {
				return err
			}

			application, err := buildApp()
			if err != nil {
				return err
			}
			defer application.Close()

			page, err := application.engine.Search(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			return printJSON(page)
		},
	}

	flags.register(cmd)
	return cmd
}

func uncategorizedCmd() *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:   "uncategorized",
		Short: "List cached transactions with no resolved category",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := flags.params()
			if err != nil {
				return err
			}

			application, err := buildApp()
			if err != nil {
				return err
			}
			defer application.Close()

			page, err := application.engine.ListUncategorized(cmd.Context(), params)
			if err != nil {
				return err
			}
			return printJSON(page)
		},
	}

	flags.register(cmd)
	return cmd
}

func getCmd() *cobra.Command {
	var refreshOnMiss bool

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a single cached transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp()
			if err != nil {
				return err
			}
			defer application.Close()

			txn, err := application.engine.GetByID(cmd.Context(), args[0], refreshOnMiss)
			if err != nil {
				return err
			}
			return printJSON(txn)
		},
	}

	cmd.Flags().BoolVar(&refreshOnMiss, "refresh-on-miss", false, "sync once before reporting not-found")
	return cmd
}
