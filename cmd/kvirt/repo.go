package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/kvirt/internal/catalog"
)

func newRepoCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Manage plan repositories",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List plan repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			repos, err := base.ListRepos(cmd.Context())
			if err != nil {
				return err
			}
			table := newTable("Repo", "Url", "Commit")
			for _, r := range repos {
				table.AddRow(r.Name, r.URL, shortCommit(r.Commit))
			}
			printTable(cmd.OutOrStdout(), table)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "create [REPO] URL",
		Short: "Install a plan repository from a git url or a local path",
		Long: `Install a plan repository. http and git urls are cloned, anything else is
treated as a local directory and symlinked. When REPO is omitted it is derived
from the url.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, url := "", args[0]
			if len(args) == 2 {
				name, url = args[0], args[1]
			}
			base, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			res, err := base.CreateRepo(cmd.Context(), name, url)
			if err != nil {
				return err
			}
			return report(cmd, res, "repo created")
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "update REPO...",
		Short: "Pull plan repositories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			var failed bool
			for _, name := range args {
				res, err := base.UpdateRepo(cmd.Context(), name)
				if err != nil {
					return err
				}
				if report(cmd, res, "repo "+name+" updated") != nil {
					failed = true
				}
			}
			if failed {
				return errOperationFailed
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "delete REPO",
		Aliases: []string{"rm"},
		Short:   "Remove a plan repository",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			res, err := base.DeleteRepo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return report(cmd, res, "repo "+args[0]+" deleted")
		},
	})
	return cmd
}

func shortCommit(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}

func newProductCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Browse the products of the plan repositories",
	}

	var filter catalog.Filter
	list := &cobra.Command{
		Use:   "list",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			products, err := base.ListProducts(filter)
			if err != nil {
				return err
			}
			table := newTable("Repo", "Product", "Group", "Description", "Numvms")
			for _, p := range products {
				table.AddRow(p.Repo, p.Name, p.Group, p.Description, p.NumVMs)
			}
			printTable(cmd.OutOrStdout(), table)
			return nil
		},
	}
	list.Flags().StringVarP(&filter.Repo, "repo", "r", "", "Only list products of this repo")
	list.Flags().StringVarP(&filter.Group, "group", "g", "", "Only list products of this group")

	var infoFilter catalog.Filter
	info := &cobra.Command{
		Use:   "info PRODUCT",
		Short: "Describe a product and its parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			product, res, err := base.DescribeProduct(args[0], infoFilter.Repo, infoFilter.Group)
			if err != nil {
				return err
			}
			if !res.Success {
				return report(cmd, res, "")
			}

			w := cmd.OutOrStdout()
			p := product.Product
			fmt.Fprintf(w, "repo: %s\n", p.Repo)
			fmt.Fprintf(w, "group: %s\n", p.Group)
			fmt.Fprintf(w, "file: %s\n", product.PlanPath)
			if p.Description != "" {
				fmt.Fprintf(w, "description: %s\n", p.Description)
			}
			if p.Image != "" {
				fmt.Fprintf(w, "image: %s\n", p.Image)
			}
			if p.NumVMs > 0 {
				fmt.Fprintf(w, "numvms: %d\n", p.NumVMs)
			}
			if p.Comments != "" {
				fmt.Fprintf(w, "comments: %s\n", p.Comments)
			}
			printParameters(w, product.Parameters)
			return nil
		},
	}
	info.Flags().StringVarP(&infoFilter.Repo, "repo", "r", "", "Repo of the product")
	info.Flags().StringVarP(&infoFilter.Group, "group", "g", "", "Group of the product")

	cmd.AddCommand(list, info)
	return cmd
}
