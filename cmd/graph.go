package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/microsoft/kiota-abstractions-go/serialization"
	"github.com/spf13/cobra"

	"github.com/teemow/graphcal/internal/graph"
)

// graphCall runs one Graph operation for user.
type graphCall func(ctx context.Context, env *environment, user string) (serialization.Parsable, error)

// runGraphCommand resolves the user, builds the environment, runs call and
// prints its result as indented Graph JSON.
func runGraphCommand(cmd *cobra.Command, opts environmentOptions, call graphCall) error {
	user, err := requireUser()
	if err != nil {
		return err
	}

	env, err := newEnvironment(opts)
	if err != nil {
		return err
	}
	defer env.close()

	result, err := call(cmd.Context(), env, user)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func printJSON(w io.Writer, p serialization.Parsable) error {
	data, err := graph.MarshalJSON(p)
	if err != nil {
		return fmt.Errorf("failed to encode Graph response: %w", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(data)
	}
	pretty.WriteByte('\n')

	_, err = pretty.WriteTo(w)
	return err
}

func newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Print the signed-in user's profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraphCommand(cmd, environmentOptions{}, func(ctx context.Context, env *environment, user string) (serialization.Parsable, error) {
				return env.graph.GetUserDetails(ctx, env.identity, user)
			})
		},
	}
}

func newCalendarCmd() *cobra.Command {
	var (
		start    string
		end      string
		days     int
		timeZone string
	)

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Print the events of a time range",
		Long: `Print the calendar view of a time range: every event, including
occurrences of recurring series, that overlaps it, ordered by start time.

Without --start the range begins now; without --end it spans --days days.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rangeStart, rangeEnd := calendarRange(time.Now(), start, end, days)
			return runGraphCommand(cmd, environmentOptions{}, func(ctx context.Context, env *environment, user string) (serialization.Parsable, error) {
				return env.graph.GetCalendarView(ctx, env.identity, user, rangeStart, rangeEnd, timeZone)
			})
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "Start of the range (ISO 8601)")
	cmd.Flags().StringVar(&end, "end", "", "End of the range (ISO 8601)")
	cmd.Flags().IntVar(&days, "days", 7, "Length of the range in days when --end is not set")
	cmd.Flags().StringVar(&timeZone, "time-zone", "", "Time zone of returned times, e.g. 'Pacific Standard Time' (default: UTC)")

	return cmd
}

// calendarRange fills in a missing start with now and a missing end with
// start plus days. Values given by the user are passed through unchanged.
func calendarRange(now time.Time, start, end string, days int) (string, string) {
	if start == "" {
		start = now.UTC().Format(time.RFC3339)
	}
	if end == "" {
		from, err := time.Parse(time.RFC3339, start)
		if err != nil {
			from = now.UTC()
		}
		end = from.AddDate(0, 0, days).Format(time.RFC3339)
	}
	return start, end
}

func newCreateEventCmd() *cobra.Command {
	var (
		form      graph.EventForm
		timeZone  string
		attendees string
	)

	cmd := &cobra.Command{
		Use:   "create-event",
		Short: "Create an event in the default calendar",
		Long: `Create an event in the user's default calendar. Start and end are local
date-times in --time-zone. Attendees are added as required attendees.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			form.Attendees = graph.ParseAttendees(attendees)
			return runGraphCommand(cmd, environmentOptions{}, func(ctx context.Context, env *environment, user string) (serialization.Parsable, error) {
				return env.graph.CreateEvent(ctx, env.identity, user, form, timeZone)
			})
		},
	}

	cmd.Flags().StringVar(&form.Subject, "subject", "", "Event subject")
	cmd.Flags().StringVar(&form.Start, "start", "", "Local start date-time, e.g. 2024-03-01T09:00")
	cmd.Flags().StringVar(&form.End, "end", "", "Local end date-time, e.g. 2024-03-01T10:00")
	cmd.Flags().StringVar(&form.Body, "body", "", "Plain text body")
	cmd.Flags().StringVar(&attendees, "attendees", "", "Attendee addresses separated by ';' or ','")
	cmd.Flags().StringVar(&timeZone, "time-zone", "UTC", "Time zone of --start and --end")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func newSubscribeCmd() *cobra.Command {
	var notificationURL string

	cmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Subscribe a notification URL to changes of the user's events",
		Long: `Create a Graph subscription that posts created, updated and deleted
events of the user to the notification URL. The subscription expires after
GRAPH_SUBSCRIPTION_TTL (default: 1h).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := environmentOptions{NotificationURL: notificationURL}
			return runGraphCommand(cmd, opts, func(ctx context.Context, env *environment, user string) (serialization.Parsable, error) {
				return env.graph.CreateSubscription(ctx, env.identity, user)
			})
		},
	}

	cmd.Flags().StringVar(&notificationURL, "notification-url", "", "HTTPS endpoint receiving notifications (env: GRAPH_NOTIFICATION_URL)")

	return cmd
}

func newTeamsMeetingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "teams-meetings",
		Short: "Print the user's events that are Teams meetings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraphCommand(cmd, environmentOptions{}, func(ctx context.Context, env *environment, user string) (serialization.Parsable, error) {
				return env.graph.GetTeamsMeetings(ctx, env.identity, user)
			})
		},
	}
}
