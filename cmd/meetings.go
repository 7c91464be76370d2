package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/meetsync/internal/meetings"
	"github.com/teemow/meetsync/internal/model"
	"github.com/teemow/meetsync/internal/store"
	"github.com/teemow/meetsync/internal/tools/common"
)

// withApp runs fn with a wired engine and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := setupApp(cmd, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.Warn("failed to close store", "error", err)
		}
	}()
	return fn(cmd.Context(), a)
}

func newSlotsCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List meeting slots that are free for the owners",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.manager.ListAvailableSlots(ctx, days)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), meetings.FormatSlots(res, a.manager.Location()))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Days to look ahead starting tomorrow (default: MEETSYNC_DAYS_AHEAD)")
	return cmd
}

func newBookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "book <manager-id> <start>",
		Short: "Book a meeting for a manager",
		Long: `Book a meeting for a manager at a free slot. The start is RFC 3339 or
"YYYY-MM-DD HH:MM" in the configured timezone.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				start, err := common.ParseTime(args[1], a.manager.Location())
				if err != nil {
					return err
				}
				booking, err := a.manager.BookMeeting(ctx, args[0], start)
				if err != nil {
					var be *meetings.BookingError
					if errors.As(err, &be) {
						return fmt.Errorf("meeting not booked: %s", be.Reason)
					}
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), booking.Message(a.manager.Location()))
				return nil
			})
		},
	}
}

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <meeting-id>",
		Short: "Cancel a meeting and remove its calendar events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.manager.CancelMeeting(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), res.Message())
				return nil
			})
		},
	}
}

type statusFunc func(ctx context.Context, meetingID string) (model.Meeting, error)

func newStatusCmd(use, short string, pick func(*app) statusFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <meeting-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				m, err := pick(a)(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Meeting %s is now %s.\n", m.ID, m.Status)
				return nil
			})
		},
	}
}

func newMeetingsCmd() *cobra.Command {
	var (
		managerID string
		status    string
	)

	cmd := &cobra.Command{
		Use:   "meetings",
		Short: "List booked meetings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.MeetingFilter{ManagerID: managerID}
			if status != "" {
				s, err := model.ParseStatus(status)
				if err != nil {
					return err
				}
				filter.Status = s
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				list, err := a.manager.ListMeetings(ctx, filter)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(out, "No meetings found.")
				}
				for _, m := range list {
					fmt.Fprintln(out, meetings.FormatMeeting(m, a.manager.Location()))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&managerID, "manager", "", "Only meetings of this manager")
	cmd.Flags().StringVar(&status, "status", "", "Only meetings in this status: scheduled, completed, cancelled or no_show")
	return cmd
}

func newExportICSCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "export-ics <meeting-id>",
		Short: "Export a meeting as an iCalendar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				var w io.Writer = cmd.OutOrStdout()
				if outputFile != "" {
					f, err := os.Create(outputFile)
					if err != nil {
						return fmt.Errorf("failed to create output file: %w", err)
					}
					defer f.Close()
					w = f
				}
				if err := a.manager.ExportICS(ctx, args[0], w); err != nil {
					return err
				}
				if outputFile != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Meeting written to: %s\n", outputFile)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newOverdueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "List active managers without a recent meeting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				overdue, err := a.manager.OverdueManagers(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(overdue) == 0 {
					fmt.Fprintln(out, "No managers are overdue.")
					return nil
				}
				for _, o := range overdue {
					last := "never met"
					if o.Last != nil {
						last = "last meeting " + o.Last.Start.In(a.manager.Location()).Format(time.DateOnly)
					}
					fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", o.Manager.ID, o.Manager.Name, o.Manager.Department, last)
				}
				return nil
			})
		},
	}
}
