package commands

import (
	"fmt"
	"strings"

	"github.com/RedRangerWentWild/IITR1/internal/database"
	"github.com/RedRangerWentWild/IITR1/internal/middleware"
	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/spf13/cobra"
)

// NewRatelimitCmd creates the ratelimit configuration command with list and set subcommands.
func NewRatelimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage rate limit configuration",
		Long: "List or update named rate limits (e.g. 5-S, 100-M). Stored in database and\n" +
			"picked up by running servers within a minute. Keys: " + models.RatelimitKeyDefault +
			" (all API routes), " + models.RatelimitKeyConvert + " (draft conversion).",
	}
	cmd.AddCommand(newRatelimitListCmd())
	cmd.AddCommand(newRatelimitSetCmd())
	return cmd
}

func newRatelimitListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List current rate limit configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)

			configs, err := database.NewRatelimitConfigRepository(db).List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list ratelimit configs: %w", err)
			}

			out := cmd.OutOrStdout()
			stored := make(map[string]bool, len(configs))
			fmt.Fprintln(out, "Rate limit configuration:")
			for _, c := range configs {
				stored[c.ConfigKey] = true
				fmt.Fprintf(out, "  %-10s %s (updated %s)\n", c.ConfigKey, c.Rate, c.UpdatedAt.Format("2006-01-02 15:04"))
			}
			defaults := map[string]string{
				models.RatelimitKeyDefault: middleware.DefaultRatelimitRate,
				models.RatelimitKeyConvert: middleware.DefaultConvertRate,
			}
			for _, key := range []string{models.RatelimitKeyDefault, models.RatelimitKeyConvert} {
				if !stored[key] {
					fmt.Fprintf(out, "  %-10s %s (built-in default)\n", key, defaults[key])
				}
			}
			return nil
		},
	}
}

func newRatelimitSetCmd() *cobra.Command {
	var key, rate string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set rate limit configuration",
		Long:  "Update a rate limit (e.g. 5-S, 100-M, 1000-H). Stored in database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rate = strings.TrimSpace(rate)
			if rate == "" {
				return fmt.Errorf("--rate is required (e.g. 5-S, 100-M)")
			}
			_, db, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)

			c := &models.RatelimitConfig{ConfigKey: key, Rate: rate}
			if err := database.NewRatelimitConfigRepository(db).Set(cmd.Context(), c); err != nil {
				return fmt.Errorf("set ratelimit config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rate limit %q set to %s.\n", key, rate)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", models.RatelimitKeyDefault, "Config key ("+models.RatelimitKeyDefault+" or "+models.RatelimitKeyConvert+")")
	cmd.Flags().StringVar(&rate, "rate", "", "Rate (e.g. 5-S, 100-M, 1000-H) (required)")
	return cmd
}
