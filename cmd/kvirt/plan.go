package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/kvirt/internal/document"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/plan"
)

func newPlanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Inspect and render plan files",
	}

	var infoOnfly string
	info := &cobra.Command{
		Use:   "info [FILE]",
		Short: "Show the parameters of a plan file and its baseplans",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			described, err := base.DescribePlan(cmd.Context(), optionalArg(args), infoOnfly)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for d := described; d != nil; d = d.Base {
				if d != described {
					fmt.Fprintf(w, "\nbaseplan %s\n", d.Path)
				}
				printParameters(w, d.Parameters)
			}
			return nil
		},
	}
	info.Flags().StringVar(&infoOnfly, "onfly", "", "Fetch missing baseplans from this url")

	var (
		req       plan.Request
		params    []string
		paramFile string
		ignore    bool
	)
	render := &cobra.Command{
		Use:   "render [FILE]",
		Short: "Render a plan file",
		Long: `Render a plan file. Parameters are taken from the command line, then the
parameter file, then the plan's parameters block and its baseplans.`,
		Example: `  kvirt plan render
  kvirt plan render lab.yml -P numcpus=4 --plan lab
  kvirt plan render --paramfile params.yml --full`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := map[string]interface{}{}
			if paramFile != "" {
				fromFile, err := readParamFile(a.fs, paramFile)
				if err != nil {
					return err
				}
				for k, v := range fromFile {
					overrides[k] = v
				}
			}
			fromFlags, err := parseParams(params)
			if err != nil {
				return err
			}
			for k, v := range fromFlags {
				overrides[k] = v
			}

			req.Path = optionalArg(args)
			req.Overrides = overrides
			if ignore {
				req.Mode = plan.Lenient
			}

			base, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			result, err := base.ResolvePlan(cmd.Context(), req)
			if err != nil {
				return err
			}

			if !req.Full {
				fmt.Fprint(cmd.OutOrStdout(), result.Rendered)
				return nil
			}
			out, err := document.Encode(result.Data)
			if err != nil {
				return fmt.Errorf("encode rendered plan: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	flags := render.Flags()
	flags.StringVarP(&req.Plan, "plan", "p", "", "Plan name (defaults to the current plan)")
	flags.StringArrayVarP(&params, "param", "P", nil, "Parameter as key=value")
	flags.StringVar(&paramFile, "paramfile", "", "YAML file of parameters")
	flags.BoolVar(&ignore, "ignore", false, "Render undefined variables as empty")
	flags.BoolVar(&req.Full, "full", false, "Keep the parameters block and print the parsed document")
	flags.BoolVar(&req.Download, "download", false, "Force every boolean parameter to true")
	flags.StringVar(&req.Onfly, "onfly", "", "Fetch missing baseplans from this url")

	cmd.AddCommand(info, render)
	return cmd
}

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// printParameters writes params as "name: value" lines in document order.
func printParameters(w io.Writer, params *document.Mapping) {
	if params == nil || params.Len() == 0 {
		fmt.Fprintln(w, "no parameters")
		return
	}
	fmt.Fprintln(w, "parameters:")
	for _, key := range params.Keys() {
		value, _ := params.Get(key)
		if value == nil {
			fmt.Fprintf(w, "  %s:\n", key)
			continue
		}
		fmt.Fprintf(w, "  %s: %v\n", key, document.Plain(value))
	}
}
