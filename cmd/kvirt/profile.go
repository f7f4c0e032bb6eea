package main

import (
	"github.com/spf13/cobra"
)

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage profiles",
	}

	var containers bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List profiles resolved against the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := a.load(cmd.Context())
			if err != nil {
				return err
			}

			if containers {
				profiles, err := base.ListContainerProfiles()
				if err != nil {
					return err
				}
				table := newTable("Profile", "Image", "Nets", "Ports", "Volumes", "Cmd")
				for _, p := range profiles {
					table.AddRow(p.Name, p.Image, cell(p.Nets), cell(p.Ports), cell(p.Volumes), cell(p.Cmd))
				}
				printTable(cmd.OutOrStdout(), table)
				return nil
			}

			profiles, err := base.ListProfiles()
			if err != nil {
				return err
			}
			table := newTable("Profile", "Flavor", "Pool", "Disks", "Image", "Nets",
				"Cloudinit", "Nested", "Reservedns", "Reservehost")
			for _, p := range profiles {
				table.AddRow(p.Name, p.Flavor, p.Pool, p.Disks, p.Image, p.Nets,
					yesNo(p.CloudInit), yesNo(p.Nested), yesNo(p.ReserveDNS), yesNo(p.ReserveHost))
			}
			printTable(cmd.OutOrStdout(), table)
			return nil
		},
	}
	list.Flags().BoolVar(&containers, "containers", false, "List container profiles")

	var createParams []string
	create := &cobra.Command{
		Use:   "create PROFILE",
		Short: "Create a profile",
		Example: `  kvirt profile create small -P numcpus=1 -P memory=1024
  kvirt profile create web -P base=small -P 'nets=[default]'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs, err := parseParams(createParams)
			if err != nil {
				return err
			}
			base, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			res, err := base.CreateProfile(cmd.Context(), args[0], attrs)
			if err != nil {
				return err
			}
			return report(cmd, res, "profile "+args[0]+" created")
		},
	}
	create.Flags().StringArrayVarP(&createParams, "param", "P", nil, "Profile attribute as key=value")

	var updateParams []string
	update := &cobra.Command{
		Use:   "update PROFILE",
		Short: "Update the attributes of a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs, err := parseParams(updateParams)
			if err != nil {
				return err
			}
			base, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			res, err := base.UpdateProfile(cmd.Context(), args[0], attrs)
			if err != nil {
				return err
			}
			return report(cmd, res, "profile "+args[0]+" updated")
		},
	}
	update.Flags().StringArrayVarP(&updateParams, "param", "P", nil, "Profile attribute as key=value")

	del := &cobra.Command{
		Use:     "delete PROFILE",
		Aliases: []string{"rm"},
		Short:   "Delete a profile",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			res, err := base.DeleteProfile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return report(cmd, res, "profile "+args[0]+" deleted")
		},
	}

	cmd.AddCommand(list, create, update, del)
	return cmd
}

func newFlavorCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flavor",
		Short: "Inspect flavors",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List flavors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			flavors, err := base.ListFlavors()
			if err != nil {
				return err
			}
			table := newTable("Flavor", "Numcpus", "Memory", "Disk")
			for _, f := range flavors {
				table.AddRow(f.Name, f.NumCPUs, f.Memory, cell(f.Disk))
			}
			printTable(cmd.OutOrStdout(), table)
			return nil
		},
	})
	return cmd
}
