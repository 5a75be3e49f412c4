package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/marv/gateway/internal/domain/calendar"
)

var errConversion = errors.New("not a valid date")

type conversion struct {
	Input  string `json:"input"`
	Result string `json:"result"`
}

func (a *app) newDateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "date",
		Short: "Convert between Gregorian and Persian (Jalaali) dates",
	}

	var persianDigits bool
	convert := func(use, short string, fn func(string) string) *cobra.Command {
		return &cobra.Command{
			Use:   use + " YYYY-MM-DD",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				result := fn(args[0])
				if result == "" {
					return fmt.Errorf("%q: %w", args[0], errConversion)
				}
				if persianDigits {
					result = calendar.ToPersianDigits(result)
				}
				return a.print(cmd.OutOrStdout(), conversion{Input: args[0], Result: result}, func(w io.Writer) {
					fmt.Fprintln(w, result)
				})
			},
		}
	}

	today := &cobra.Command{
		Use:   "today",
		Short: "Print today's date in both calendars",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := struct {
				Gregorian string `json:"gregorian"`
				Persian   string `json:"persian"`
			}{a.converter.TodayGregorian(), a.converter.TodayPersian()}
			if persianDigits {
				out.Persian = calendar.ToPersianDigits(out.Persian)
			}
			return a.print(cmd.OutOrStdout(), out, func(w io.Writer) {
				fmt.Fprintf(w, "%s\t%s\n", out.Gregorian, out.Persian)
			})
		},
	}

	cmd.AddCommand(
		convert("to-persian", "Convert a Gregorian date to Persian", calendar.GregorianToPersian),
		convert("to-gregorian", "Convert a Persian date to Gregorian", calendar.PersianToGregorian),
		today,
	)
	cmd.PersistentFlags().BoolVar(&persianDigits, "persian-digits", false, "Print Persian results with Persian digits")
	return cmd
}
