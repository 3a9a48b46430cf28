package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"review-game-service/internal/config"
	"review-game-service/internal/provider"
)

// NewVerifyCmd runs next-day verification for a date against an
// outcome file.
func NewVerifyCmd(configPath *string) *cobra.Command {
	var (
		date       string
		actualPath string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a date's predictions against actual outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if date == "" || actualPath == "" {
				return fmt.Errorf("--date and --actual are required")
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			setupLogging(cfg)

			actual, err := provider.LoadActual(actualPath)
			if err != nil {
				return err
			}

			service, cleanup, err := buildService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := service.Verify(cmd.Context(), date, actual)
			if err != nil {
				return err
			}
			log.Info().
				Str("date", report.Date).
				Str("state", string(report.State)).
				Int("verified", report.Verified).
				Int("skipped", report.Skipped).
				Int("failures", len(report.Failures)).
				Msg("verification finished")
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "trading date to verify (YYYY-MM-DD)")
	cmd.Flags().StringVar(&actualPath, "actual", "", "path to YAML file with actual outcomes")
	return cmd
}
