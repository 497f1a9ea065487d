package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newFormulasCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "formulas [id]",
		Short: "List QTc formulas, or describe one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.newService(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				f, err := svc.Formula(args[0])
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return printJSON(out, f)
				}
				fmt.Fprintf(out, "%s (%s)\n", f.LongName, f.ID)
				fmt.Fprintf(out, "  equation:       %s\n", f.Equation)
				fmt.Fprintf(out, "  classification: %s\n", f.Classification)
				fmt.Fprintf(out, "  reference:      %s\n", f.Reference)
				if f.Notes != "" {
					fmt.Fprintf(out, "  notes:          %s\n", f.Notes)
				}
				return nil
			}

			formulas := svc.ListFormulas()
			if opts.jsonOutput {
				return printJSON(out, formulas)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCLASS\tYEAR")
			for _, f := range formulas {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", f.ID, f.LongName, f.Classification, f.PublicationYear)
			}
			return tw.Flush()
		},
	}
}

func newCriteriaCommand(opts *rootOptions) *cobra.Command {
	var units string

	cmd := &cobra.Command{
		Use:   "criteria [id]",
		Short: "List clinical criteria, or show the cutoffs of one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.newService(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				detail, err := svc.Criterion(args[0], units)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return printJSON(out, detail)
				}
				fmt.Fprintf(out, "%s (%s)\n", detail.Name, detail.ID)
				if detail.Description != "" {
					fmt.Fprintf(out, "%s\n", detail.Description)
				}
				fmt.Fprintln(out)
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "QTC\tSEVERITY\tSEX\tAGE")
				for _, c := range detail.Cutoffs {
					fmt.Fprintf(tw, "%s %g %s\t%s\t%s\t%s\n", c.Comparison, c.Value, c.Units, c.Severity, orAny(c.Sex), orAny(c.Age))
				}
				return tw.Flush()
			}

			criteria := svc.ListCriteria()
			if opts.jsonOutput {
				return printJSON(out, criteria)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tRULES\tNEEDS")
			for _, c := range criteria {
				needs := "-"
				switch {
				case c.RequiresSex && c.RequiresAge:
					needs = "sex, age"
				case c.RequiresSex:
					needs = "sex"
				case c.RequiresAge:
					needs = "age"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", c.ID, c.Name, c.RuleCount, needs)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&units, "units", "u", "", "units for the cutoffs (default msec)")
	return cmd
}

func orAny(s string) string {
	if s == "" {
		return "any"
	}
	return s
}
