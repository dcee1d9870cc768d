package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"whatsapp-quiz-bot/internal/config"
	"whatsapp-quiz-bot/internal/infra/memory"
)

// NewWhitelistCmd manages the file-backed whitelist from the command line,
// for deployments that run without Redis.
func NewWhitelistCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whitelist",
		Short: "Manage the conversation whitelist",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <entity>",
			Short: "Authorize a conversation",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withWhitelist(*configPath, func(ctx context.Context, wl *memory.Whitelist) error {
					added, err := wl.Add(ctx, args[0])
					if err != nil {
						return err
					}
					if !added {
						fmt.Println("already whitelisted")
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "remove <entity>",
			Short: "Revoke a conversation",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withWhitelist(*configPath, func(ctx context.Context, wl *memory.Whitelist) error {
					removed, err := wl.Remove(ctx, args[0])
					if err != nil {
						return err
					}
					if !removed {
						fmt.Println("not whitelisted")
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List authorized conversations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withWhitelist(*configPath, func(ctx context.Context, wl *memory.Whitelist) error {
					entities, err := wl.List(ctx)
					if err != nil {
						return err
					}
					for _, e := range entities {
						fmt.Println(e)
					}
					return nil
				})
			},
		},
	)
	return cmd
}

func withWhitelist(configPath string, fn func(context.Context, *memory.Whitelist) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Whitelist.File == "" {
		return fmt.Errorf("whitelist file not configured")
	}
	wl, err := memory.NewWhitelist(cfg.Whitelist.File)
	if err != nil {
		return err
	}
	return fn(context.Background(), wl)
}
