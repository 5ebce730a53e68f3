package commands

import (
	"encoding/json"
	"fmt"

	"github.com/RedRangerWentWild/IITR1/internal/database"
	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/RedRangerWentWild/IITR1/internal/services/metrics"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewStatsCmd creates the stats command
func NewStatsCmd() *cobra.Command {
	var email, period, output string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print a user's reply statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := models.StatsPeriod(period)
			if p != models.StatsPeriod7Days && p != models.StatsPeriod30Days {
				return fmt.Errorf("--period must be 7days or 30days")
			}
			_, db, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)

			user, err := lookupUser(cmd, database.NewUserRepository(db), email)
			if err != nil {
				return err
			}
			rollup := metrics.NewRollup(database.NewConversionLogRepository(db), database.NewDailyMetricsRepository(db))
			stats, err := rollup.GetStats(cmd.Context(), user.ID, p)
			if err != nil {
				return err
			}

			switch output {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			case "yaml":
				return yaml.NewEncoder(cmd.OutOrStdout()).Encode(stats)
			default:
				return fmt.Errorf("unknown output format %q", output)
			}
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&period, "period", string(models.StatsPeriod7Days), "7days or 30days")
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format: yaml or json")
	return cmd
}
