// Package cli implements marvctl, the command line companion of the gateway.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/marv/gateway/internal/domain/calendar"
	"github.com/marv/gateway/internal/infrastructure/logger"
)

// Output formats
const (
	OutputText = "text"
	OutputJSON = "json"
)

// app carries the state shared by every subcommand
type app struct {
	v         *viper.Viper
	converter *calendar.Converter
	logger    *zap.Logger
}

// Option configures the root command
type Option func(*app)

// WithClock fixes the clock used by "date today"
func WithClock(clock calendar.Clock) Option {
	return func(a *app) {
		a.converter = calendar.NewConverter(clock)
	}
}

// WithLogger sets the logger used for diagnostics
func WithLogger(l *zap.Logger) Option {
	return func(a *app) {
		a.logger = l
	}
}

// NewRootCommand builds the marvctl command tree. Flags may also be set
// through MARV_ prefixed environment variables, e.g. MARV_UPSTREAM.
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{
		v:         viper.New(),
		converter: calendar.NewConverter(nil),
	}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:           "marvctl",
		Short:         "Serial ranges, Persian dates and warranty lookups",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.logger != nil {
				return nil
			}
			l, err := logger.New(&logger.Config{
				Level:  a.v.GetString("log-level"),
				Format: "console",
				Output: "stderr",
			})
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = l
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringP("output", "o", OutputText, "Output format (text, json)")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flags.String("upstream", "http://localhost:8000/api", "Warranty backend base URL")
	flags.String("token", "", "Bearer token for the warranty backend")
	flags.Duration("timeout", 15*time.Second, "Upstream request timeout")

	a.v.SetEnvPrefix("MARV")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	_ = a.v.BindPFlags(flags)

	root.AddCommand(
		a.newSerialsCommand(),
		a.newDateCommand(),
		a.newWarrantyCommand(),
		a.newMigrateCommand(),
	)
	return root
}

func (a *app) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *app) jsonOutput() bool {
	return a.v.GetString("output") == OutputJSON
}

// print writes v as indented JSON when --output=json, otherwise calls text
func (a *app) print(w io.Writer, v any, text func(io.Writer)) error {
	if a.jsonOutput() {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
