package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/health-attestation-server/internal/domain"
	"github.com/health-attestation-server/internal/service"
	"github.com/health-attestation-server/internal/standards"
)

func newStandardsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "standards [test name]",
		Short: "List supported test types, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := standards.Default()
			if len(args) == 0 {
				return printJSON(cmd.OutOrStdout(), catalog.List())
			}
			standard, ok := catalog.Lookup(args[0])
			if !ok {
				return domain.NewUnknownTestTypeError(args[0])
			}
			return printJSON(cmd.OutOrStdout(), standard)
		},
	}
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <test name> <value>",
		Short: "Check a value against the possible range of its test type",
		Long: `Check a value against the possible range of its test type and report the
clinical bands it falls into. Exits non-zero when the range check fails.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return domain.NewInputError("value", fmt.Sprintf("value must be a number: %q", args[1]))
			}

			catalog := standards.Default()
			result, err := service.NewRangeValidator(catalog).Validate(args[0], value)
			if err != nil {
				return err
			}

			check := &domain.MeasurementCheck{Result: result, Bands: []string{}}
			if standard, ok := catalog.Lookup(args[0]); ok {
				check.Unit = standard.Unit
			}
			if check.Bands, err = catalog.Classify(args[0], value); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), check)
		},
	}
}
