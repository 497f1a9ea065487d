// Package main is the qtc command-line calculator.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/qtc-mcp-server/internal/service"
	"github.com/qtc-mcp-server/internal/setup"
	"github.com/qtc-mcp-server/pkg/qtc"
)

// rootOptions are flags shared by every subcommand.
type rootOptions struct {
	criteriaFile string
	jsonOutput   bool
	verbose      bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "qtc",
		Short:        "Heart-rate corrected QT calculator",
		Long:         "qtc corrects a measured QT interval for heart rate with published formulas and classifies the result against clinical criteria.",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.criteriaFile, "criteria-file", os.Getenv("QTC_CRITERIA_FILE"), "YAML file with additional criteria")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "print results as JSON")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log service activity to stderr")

	cmd.AddCommand(
		newCalcCommand(opts),
		newClassifyCommand(opts),
		newFormulasCommand(opts),
		newCriteriaCommand(opts),
		newHistoryCommand(opts),
		setup.NewCommand(),
	)
	return cmd
}

// newService builds an in-process service without history.
func (o *rootOptions) newService(errOut io.Writer) (*service.QTcService, error) {
	criteria, err := service.LoadCriteria(o.criteriaFile)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetOutput(errOut)
	logger.SetLevel(logrus.WarnLevel)
	if o.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return service.NewQTcService(logger, qtc.DefaultFormulaRegistry(), criteria), nil
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatValue(v *float64, nonFinite, units string) string {
	if v == nil {
		return nonFinite
	}
	if units == qtc.Sec.String() {
		return fmt.Sprintf("%.4f %s", *v, units)
	}
	return fmt.Sprintf("%.1f %s", *v, units)
}
