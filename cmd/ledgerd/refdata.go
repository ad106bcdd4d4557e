package main

import (
	"github.com/spf13/cobra"
)

func categoriesCmd() *cobra.Command {
	var limit int
	var forceRefresh bool

	cmd := &cobra.Command{
		Use:   "categories [query]",
		Short: "List cached categories",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp()
			if err != nil {
				return err
			}
			defer application.Close()

			if len(args) == 1 {
				categories, err := application.engine.SearchCategories(cmd.Context(), args[0], limit, forceRefresh)
				if err != nil {
					return err
				}
				return printJSON(categories)
			}

			categories, err := application.engine.ListCategories(cmd.Context(), limit, forceRefresh)
			if err != nil {
				return err
			}
			return printJSON(categories)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum categories to return (max 5000)")
	cmd.Flags().BoolVar(&forceRefresh, "refresh", false, "resync categories before reading")
	return cmd
}

func categoryCmd() *cobra.Command {
	var forceRefresh bool

	cmd := &cobra.Command{
		Use:   "category <id>",
		Short: "Show a single cached category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp()
			if err != nil {
				return err
			}
			defer application.Close()

			category, err := application.engine.GetCategoryByID(cmd.Context(), args[0], forceRefresh)
			if err != nil {
				return err
			}
			return printJSON(category)
		},
	}

	cmd.Flags().BoolVar(&forceRefresh, "refresh", false, "resync categories before reading")
	return cmd
}

func tagsCmd() *cobra.Command {
	var limit int
	var forceRefresh bool

	cmd := &cobra.Command{
		Use:   "tags [query]",
		Short: "List cached tags",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp()
			if err != nil {
				return err
			}
			defer application.Close()

			if len(args) == 1 {
				tags, err := application.engine.SearchTags(cmd.Context(), args[0], limit, forceRefresh)
				if err != nil {
					return err
				}
				return printJSON(tags)
			}

			tags, err := application.engine.ListTags(cmd.Context(), limit, forceRefresh)
			if err != nil {
				return err
			}
			return printJSON(tags)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum tags to return (max 5000)")
	cmd.Flags().BoolVar(&forceRefresh, "refresh", false, "resync tags before reading")
	return cmd
}
