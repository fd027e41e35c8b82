package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"powerplay/internal/docstore"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		firstName string
		lastName  string
		gender    string
		photoRef  string
	)

	cmd := &cobra.Command{
		Use:   "submit <email>",
		Short: "Create a work item from a kiosk intake",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := strings.TrimSpace(args[0])
			if email == "" {
				return fmt.Errorf("email is required")
			}
			if strings.TrimSpace(photoRef) == "" {
				return fmt.Errorf("--photo is required")
			}
			uploaded := time.Now().UTC()
			return ctx.withStore(func(store *docstore.Store) error {
				item, err := store.Create(cmd.Context(), email, docstore.Inputs{
					PhotoRef:        photoRef,
					PhotoUploadedAt: &uploaded,
					FirstName:       firstName,
					LastName:        lastName,
					Gender:          gender,
					Email:           email,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Submitted %s (status %s)\n", item.ID, item.Status)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&firstName, "first-name", "", "Player first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "Player last name")
	cmd.Flags().StringVar(&gender, "gender", "", "Player gender for prompt phrasing")
	cmd.Flags().StringVar(&photoRef, "photo", "", "Photo reference (blob path or URL)")
	return cmd
}

func newScoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "score <email> <score>",
		Short: "Record a player's game score",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid score %q: %w", args[1], err)
			}
			return ctx.withStore(func(store *docstore.Store) error {
				updated, err := store.SetScore(cmd.Context(), args[0], score)
				if err != nil {
					return err
				}
				if !updated {
					return fmt.Errorf("no work item for %s", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded score %d for %s\n", score, args[0])
				return nil
			})
		},
	}
}

func newClearErrorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-error <email>",
		Short: "Roll a failed item back so the pipeline retries it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *docstore.Store) error {
				cleared, err := store.ClearError(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !cleared {
					return fmt.Errorf("%s has no error to clear", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared error on %s\n", args[0])
				return nil
			})
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <email>",
		Short: "Delete a work item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *docstore.Store) error {
				removed, err := store.Remove(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("no work item for %s", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			})
		},
	}
}
