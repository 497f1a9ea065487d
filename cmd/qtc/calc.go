package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qtc-mcp-server/internal/domain"
	"github.com/qtc-mcp-server/pkg/qtc"
)

// measurementFlags are the sex and age flags shared by calc and classify.
type measurementFlags struct {
	sex string
	age int
}

func (m *measurementFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&m.sex, "sex", "", "male or female")
	cmd.Flags().IntVar(&m.age, "age", -1, "age in years")
}

func (m *measurementFlags) agePtr() *int {
	if m.age < 0 {
		return nil
	}
	age := m.age
	return &age
}

func newCalcCommand(opts *rootOptions) *cobra.Command {
	var (
		formula   string
		criterion string
		qt        float64
		rr        float64
		rate      bool
		units     string
		m         measurementFlags
	)

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Correct a QT interval for heart rate",
		Example: `  qtc calc --qt 400 --rr 800
  qtc calc --formula qtcFrd --qt 0.4 --rr 75 --rate --units sec
  qtc calc --qt 460 --rr 900 --sex female --criterion aha2009`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.newService(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("qt") {
				return fmt.Errorf("--qt is required")
			}

			typ := qtc.Interval.String()
			if rate {
				typ = qtc.Rate.String()
			}
			req := domain.CalculateRequest{
				Formula:      formula,
				QT:           qtc.Float(qt),
				IntervalRate: rr,
				Type:         typ,
				Units:        units,
				Sex:          m.sex,
				Age:          m.agePtr(),
			}
			out := cmd.OutOrStdout()

			if criterion == "" {
				resp, err := svc.Calculate(cmd.Context(), &req)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return printJSON(out, resp)
				}
				fmt.Fprintf(out, "%s (%s): %s\n", resp.Formula.ShortName, resp.Formula.ID, formatValue(resp.QTc, resp.NonFinite, resp.Units))
				return nil
			}

			record, err := svc.Evaluate(cmd.Context(), &domain.EvaluateRequest{
				Formula:      req.Formula,
				Criterion:    criterion,
				QT:           req.QT,
				IntervalRate: req.IntervalRate,
				Type:         req.Type,
				Units:        req.Units,
				Sex:          req.Sex,
				Age:          req.Age,
			})
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(out, record)
			}
			fmt.Fprintf(out, "%s: %s\n", record.Formula, formatValue(record.QTc, record.NonFinite, record.Units))
			fmt.Fprintf(out, "%s: %s\n", record.Criterion, record.Severity)
			for _, rule := range record.MatchedRules {
				fmt.Fprintf(out, "  matched %s\n", rule)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&formula, "formula", "f", "", "formula identifier (default qtcBzt)")
	cmd.Flags().StringVar(&criterion, "criterion", "", "also classify against this criterion")
	cmd.Flags().Float64Var(&qt, "qt", 0, "measured QT interval")
	cmd.Flags().Float64Var(&rr, "rr", 0, "RR interval, or heart rate in bpm with --rate")
	cmd.Flags().BoolVar(&rate, "rate", false, "treat --rr as a heart rate in bpm")
	cmd.Flags().StringVarP(&units, "units", "u", "", "sec or msec (default msec)")
	m.register(cmd)
	return cmd
}

func newClassifyCommand(opts *rootOptions) *cobra.Command {
	var (
		criterion string
		value     float64
		units     string
		m         measurementFlags
	)

	cmd := &cobra.Command{
		Use:     "classify",
		Short:   "Classify a corrected QT interval",
		Example: `  qtc classify --criterion aha2009 --qtc 455 --sex male`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.newService(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("qtc") {
				return fmt.Errorf("--qtc is required")
			}

			resp, err := svc.Classify(cmd.Context(), &domain.ClassifyRequest{
				Criterion: criterion,
				QTc:       qtc.Float(value),
				Units:     units,
				Sex:       m.sex,
				Age:       m.agePtr(),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return printJSON(out, resp)
			}
			fmt.Fprintf(out, "%s (%s): %s\n", resp.CriterionName, resp.Criterion, resp.Severity)
			for _, rule := range resp.MatchedRules {
				fmt.Fprintf(out, "  matched %s\n", rule.Rule)
			}
			if len(resp.InsufficientRules) > 0 {
				var missing []string
				for _, rule := range resp.InsufficientRules {
					missing = append(missing, rule.Rule)
				}
				fmt.Fprintf(out, "  not evaluated without sex or age: %s\n", strings.Join(missing, "; "))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&criterion, "criterion", "c", "", "criterion identifier (default aha2009)")
	cmd.Flags().Float64Var(&value, "qtc", 0, "corrected QT interval")
	cmd.Flags().StringVarP(&units, "units", "u", "", "sec or msec (default msec)")
	m.register(cmd)
	return cmd
}
