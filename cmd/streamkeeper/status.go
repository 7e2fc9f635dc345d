package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/streamkeeper/internal/adapters/fs"
	"github.com/bft-labs/streamkeeper/internal/adapters/youtube"
	"github.com/bft-labs/streamkeeper/pkg/streamkeeper"
)

func (c *cli) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the managed broadcast and when it will be rotated",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd); err != nil {
				return err
			}

			repo := fs.NewStateFileRepository(c.cfg.StateDir)
			rec, err := repo.Load(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if rec == nil {
				fmt.Fprintf(out, "No managed broadcast (%s). The next check creates one.\n", repo.Path())
				return nil
			}

			now := time.Now()
			age := rec.Age(now)
			rotateIn := c.cfg.MaxLifespan() - age

			fmt.Fprintf(out, "Broadcast:  %s\n", rec.ResourceID)
			fmt.Fprintf(out, "Watch:      %s%s\n", youtube.WatchURLPrefix, rec.ResourceID)
			fmt.Fprintf(out, "Created:    %s\n", rec.CreatedAt.Local().Format(time.RFC1123))
			fmt.Fprintf(out, "Age:        %s\n", age.Truncate(time.Second))
			if rotateIn > 0 {
				fmt.Fprintf(out, "Rotates in: %s\n", rotateIn.Truncate(time.Second))
			} else {
				fmt.Fprintln(out, "Rotates:    on the next check")
			}
			return nil
		},
	}
}

func (c *cli) resetCommand() *cobra.Command {
	var end bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget the managed broadcast so the next check creates a new one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if !end {
				repo := fs.NewStateFileRepository(c.cfg.StateDir)
				if err := repo.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %s. The broadcast itself was left alone.\n", repo.Path())
				return nil
			}

			provider, err := c.provider(ctx)
			if err != nil {
				return err
			}
			sk, err := streamkeeper.New(c.cfg.KeeperConfig(), provider, streamkeeper.WithLogger(c.logger()))
			if err != nil {
				return err
			}

			rec, err := sk.Reset(ctx, true)
			if err != nil {
				return err
			}
			if rec == nil {
				fmt.Fprintln(out, "No managed broadcast.")
				return nil
			}
			fmt.Fprintf(out, "Ended %s and cleared the state file.\n", rec.ResourceID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&end, "end", false, "also end the broadcast at YouTube")
	return cmd
}
