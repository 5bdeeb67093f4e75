package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var (
		debugMode  bool
		calendarID string
		from       string
		to         string
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List calendar events",
		Long: `List events of a calendar within a time range. Without --from/--to the
next seven days are shown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			timeMin := time.Now()
			timeMax := timeMin.AddDate(0, 0, 7)

			var err error
			if from != "" {
				timeMin, err = time.Parse(time.RFC3339, from)
				if err != nil {
					return fmt.Errorf("invalid --from value: %w", err)
				}
			}
			if to != "" {
				timeMax, err = time.Parse(time.RFC3339, to)
				if err != nil {
					return fmt.Errorf("invalid --to value: %w", err)
				}
			}

			ctx := context.Background()
			sc, err := newCLIServerContext(ctx, debugMode)
			if err != nil {
				return err
			}
			defer func() { _ = sc.Shutdown() }()

			events, err := sc.CalendarClient().ListEvents(ctx, calendarID, timeMin, timeMax)
			if err != nil {
				return fmt.Errorf("failed to list events: %w", err)
			}

			if len(events) == 0 {
				fmt.Println("No events found")
				return nil
			}

			for _, event := range events {
				if event.AllDay {
					fmt.Printf("%s  all day       %s\n", event.Start.Format("2006-01-02"), event.Summary)
					continue
				}
				fmt.Printf("%s  %s-%s  %s\n",
					event.Start.Format("2006-01-02"),
					event.Start.Format("15:04"),
					event.End.Format("15:04"),
					event.Summary)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&calendarID, "calendar", "primary", "Calendar ID")
	cmd.Flags().StringVar(&from, "from", "", "Start of the range (RFC3339). Defaults to now.")
	cmd.Flags().StringVar(&to, "to", "", "End of the range (RFC3339). Defaults to seven days from now.")

	return cmd
}
