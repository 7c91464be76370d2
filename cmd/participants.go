package cmd

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/meetsync/internal/google"
	"github.com/teemow/meetsync/internal/model"
)

func newConnectCmd() *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "connect <participant-id>",
		Short: "Authorize access to a participant's own calendar",
		Long: `Run the delegated OAuth consent flow for a participant. The command prints
the consent URL and reads the authorization code from stdin unless --code is
given. The token is saved to the configured token store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if a.oauth == nil {
					return google.ErrNoClientCredentials
				}
				participantID := args[0]
				if _, err := a.store.GetParticipant(ctx, participantID); err != nil {
					return fmt.Errorf("unknown participant %s: %w", participantID, err)
				}

				if code == "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Open this URL and grant calendar access:\n\n%s\n\nAuthorization code: ", google.AuthURL(a.oauth, participantID))
					line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
					if err != nil && line == "" {
						return fmt.Errorf("failed to read authorization code: %w", err)
					}
					code = strings.TrimSpace(line)
				}

				if _, err := google.Connect(ctx, a.oauth, a.tokens, participantID, code); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Calendar of %s connected.\n", participantID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "Authorization code from the consent page")
	return cmd
}

func newParticipantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "participant",
		Short: "Manage managers and owners",
	}
	cmd.AddCommand(newParticipantAddCmd())
	cmd.AddCommand(newParticipantListCmd())
	return cmd
}

func newParticipantAddCmd() *cobra.Command {
	var (
		p      model.Participant
		role   string
		status string
	)

	cmd := &cobra.Command{
		Use:   "add <participant-id>",
		Short: "Add or update a participant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.ID = args[0]
			p.Role = model.Role(role)
			p.Status = model.ParticipantStatus(status)
			switch p.Role {
			case model.RoleAdmin, model.RoleManager, model.RoleOwner, model.RolePending:
			default:
				return fmt.Errorf("invalid role %q, must be one of: admin, manager, owner, pending", role)
			}
			p.CreatedAt = time.Now()

			return withApp(cmd, func(ctx context.Context, a *app) error {
				if existing, err := a.store.GetParticipant(ctx, p.ID); err == nil {
					p.CreatedAt = existing.CreatedAt
				}
				if err := a.store.SaveParticipant(ctx, p); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Participant %s saved.\n", p.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&p.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&p.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&p.Department, "department", "", "Department, used in the event title")
	cmd.Flags().StringVar(&p.CalendarID, "calendar", "", "Calendar ID; empty means the participant has no calendar")
	cmd.Flags().StringVar(&role, "role", string(model.RoleManager), "Role: admin, manager, owner or pending")
	cmd.Flags().StringVar(&status, "status", string(model.ParticipantActive), "Status: active, vacation, sick_leave, business_trip or deleted")
	return cmd
}

func newParticipantListCmd() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List participants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				list, err := a.store.ListParticipants(ctx, model.Role(role))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, p := range list {
					calendarID := p.CalendarID
					if calendarID == "" {
						calendarID = "-"
					}
					fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Role, p.Status, calendarID)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Only participants with this role")
	return cmd
}
