package commands

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RedRangerWentWild/IITR1/internal/middleware"
	"github.com/RedRangerWentWild/IITR1/internal/queue"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test connectivity to configured backends",
		Long:  "Check that the database, Redis and (if configured) RabbitMQ are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			var mu sync.Mutex
			report := func(name string, err error) error {
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "✗ %s: %v\n", name, err)
					return fmt.Errorf("%s: %w", name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", name)
				return nil
			}

			var g errgroup.Group
			g.Go(func() error {
				return report("database", db.PingContext(ctx))
			})
			g.Go(func() error {
				client, err := middleware.NewRedisClient(ctx, cfg.RedisURL)
				if err == nil {
					_ = client.Close()
				}
				return report("redis", err)
			})
			if cfg.RabbitMQURL != "" {
				g.Go(func() error {
					q, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL, zap.NewNop())
					if err != nil {
						return report("rabbitmq", err)
					}
					defer func() { _ = q.Close() }()
					return report("rabbitmq", q.HealthCheck(ctx))
				})
			}
			if err := g.Wait(); err != nil {
				return fmt.Errorf("connectivity test failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All backends reachable.")
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Overall timeout")

	return cmd
}
