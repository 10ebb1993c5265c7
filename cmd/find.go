package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/meetslot/internal/availability"
	"github.com/teemow/meetslot/internal/tools/scheduling_tools"
)

const (
	outputText = "text"
	outputJSON = "json"
)

type findOptions struct {
	participants    []string
	date            string
	duration        int
	top             int
	busyFile        string
	output          string
	user            string
	preferencesFile string
	timezone        string
}

func newFindCmd() *cobra.Command {
	var opts findOptions

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find common free meeting slots",
		Long: `Find the best common free slots for a meeting among the given participants.

Busy times are read from Google Calendar or Microsoft Graph depending on the
participant's domain (see --config). With --busy-file, busy times are read
from a YAML file instead and no calendar is contacted.

If the calendar of some participant cannot be read, the slots are still
computed and that participant is listed as a partial failure: the slots may
conflict with their calendar.`,
		Example: `  meetslot find --participants alice@example.com,bob@outlook.com --date 2026-10-19 --duration 30
  meetslot find --participants alice@example.com --date 2026-10-19 --busy-file busy.yaml --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runFind(ctx, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.participants, "participants", "p", nil, "Comma-separated participant email addresses (required)")
	cmd.Flags().StringVarP(&opts.date, "date", "d", "", "Day to search, YYYY-MM-DD (required)")
	cmd.Flags().IntVar(&opts.duration, "duration", 0, "Meeting duration in minutes (default: the user's preferred duration, then default_duration from configuration)")
	cmd.Flags().IntVar(&opts.top, "top", 0, "Number of slots to return (default from configuration)")
	cmd.Flags().StringVar(&opts.busyFile, "busy-file", "", "Read busy times from a YAML file instead of calendars")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputText, "Output format: text or json")
	cmd.Flags().StringVar(&opts.user, "user", "", "Requesting user, used to look up preferences")
	cmd.Flags().StringVar(&opts.preferencesFile, "preferences", "", "User preference file (JSON)")
	cmd.Flags().StringVar(&opts.timezone, "timezone", "", "IANA timezone of the working hours (default from configuration)")
	_ = cmd.MarkFlagRequired("participants")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

func runFind(ctx context.Context, out io.Writer, opts findOptions) error {
	if opts.output != outputText && opts.output != outputJSON {
		return fmt.Errorf("unsupported output format %q (expected %s or %s)", opts.output, outputText, outputJSON)
	}
	date, err := availability.ParseDate(opts.date)
	if err != nil {
		return err
	}

	s, err := buildStack(ctx, stackOptions{
		busyFile:        opts.busyFile,
		preferencesFile: opts.preferencesFile,
		timezone:        opts.timezone,
		topN:            opts.top,
	})
	if err != nil {
		return err
	}

	req := availability.SchedulingRequest{
		Participants:    opts.participants,
		Date:            date,
		DurationMinutes: opts.duration,
	}
	policy := s.engine.Policy()
	s.preferences.Apply(&req, opts.user, policy)
	if req.Policy != nil && opts.timezone == "" {
		policy = *req.Policy
	} else {
		req.Policy = nil
	}

	result, err := s.engine.FindSlots(ctx, req)
	if err != nil {
		if errors.Is(err, availability.ErrInvalidRequest) {
			return fmt.Errorf("invalid request: %w", err)
		}
		return err
	}

	resp := scheduling_tools.NewSlotsResponse(result, date, policy.Location)
	if opts.output == outputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	_, err = io.WriteString(out, resp.Text())
	return err
}
