package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	bulkapp "github.com/marv/gateway/internal/application/bulk"
	"github.com/marv/gateway/internal/domain/serial"
)

func (a *app) newSerialsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serials",
		Short: "Work with serial number ranges",
	}

	var (
		prefix  string
		maxSize int64
	)
	expand := &cobra.Command{
		Use:   "expand START END",
		Short: "List every serial between START and END inclusive",
		Long: `Expand a serial range.

Without --prefix both bounds must share the same non-digit prefix and end in
digits, e.g. "SN0001 SN0100". With --prefix the bounds are bare numbers and
the prefix is prepended to each serial. Persian digits are accepted.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			service := bulkapp.NewService(nil, nil, bulkapp.Config{MaxRangeSize: maxSize})
			r, serials, err := service.Expand(bulkapp.RangeInput{
				StartSerial: args[0],
				EndSerial:   args[1],
				Prefix:      prefix,
			})
			if err != nil {
				return err
			}

			out := struct {
				serial.Range
				Count   int      `json:"count"`
				Serials []string `json:"serials"`
			}{r, len(serials), serials}

			return a.print(cmd.OutOrStdout(), out, func(w io.Writer) {
				for _, sn := range serials {
					fmt.Fprintln(w, sn)
				}
			})
		},
	}
	expand.Flags().StringVar(&prefix, "prefix", "", "Explicit prefix; bounds must then be digits only")
	expand.Flags().Int64Var(&maxSize, "max", 10000, "Refuse ranges with more serials than this (0 or above 1000000 means 1000000)")

	cmd.AddCommand(expand)
	return cmd
}
