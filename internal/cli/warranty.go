package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	warrantyapp "github.com/marv/gateway/internal/application/warranty"
	"github.com/marv/gateway/internal/infrastructure/marvapi"
)

func (a *app) client() (*marvapi.Client, error) {
	return marvapi.New(marvapi.Config{
		BaseURL:   a.v.GetString("upstream"),
		Timeout:   a.v.GetDuration("timeout"),
		UserAgent: "marvctl",
	},
		marvapi.WithTokenSource(marvapi.NewStaticToken(a.v.GetString("token"))),
		marvapi.WithObserver(func(method, endpoint string, status int, elapsed time.Duration) {
			a.log().Debug("upstream request",
				zap.String("method", method),
				zap.String("endpoint", endpoint),
				zap.Int("status", status),
				zap.Duration("elapsed", elapsed),
			)
		}),
	)
}

func (a *app) newWarrantyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "warranty SERIAL",
		Short: "Look up the warranty of a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			service := warrantyapp.NewService(client, warrantyapp.WithLogger(a.log()))

			res, err := service.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return a.print(cmd.OutOrStdout(), res, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "Serial:\t%s\n", res.Serial)
				fmt.Fprintf(tw, "Status:\t%s\n", res.Device.Status)
				fmt.Fprintf(tw, "Warranty:\t%s\n", res.Coverage.State)
				if res.Coverage.IsActive() {
					fmt.Fprintf(tw, "Days left:\t%d\n", res.Coverage.DaysRemaining)
				}
				if res.WarrantyStartPersian != "" {
					fmt.Fprintf(tw, "Starts:\t%s\n", res.WarrantyStartPersian)
				}
				if res.WarrantyEndPersian != "" {
					fmt.Fprintf(tw, "Ends:\t%s\n", res.WarrantyEndPersian)
				}
				fmt.Fprintf(tw, "Repairs:\t%d\n", len(res.Repairs))
				_ = tw.Flush()
			})
		},
	}
}
