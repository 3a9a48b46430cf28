package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"review-game-service/internal/config"
)

// NewIssueCmd generates and stores the question set for one date.
func NewIssueCmd(configPath *string) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue the daily question set for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			if date == "" {
				return fmt.Errorf("--date is required")
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			setupLogging(cfg)

			service, cleanup, err := buildService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			questions, err := service.Issue(cmd.Context(), date)
			if err != nil {
				return err
			}
			for _, q := range questions {
				log.Info().Str("id", q.ID).Str("step", q.Step.String()).Msg("issued")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "trading date (YYYY-MM-DD)")
	return cmd
}
