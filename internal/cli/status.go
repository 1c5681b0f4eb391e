package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"datenbriefd/internal/app"
	"datenbriefd/internal/storage"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show when each company is due next",
		Long: `Load the config and the timetable and print every company with its next
due time and reminder count. Nothing is sent and the timetable is not
written.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("invalid format %q: must be text or json", format)
			}
			aopts, err := appOptions(cmd, rootOpts)
			if err != nil {
				return err
			}
			rep, err := app.Status(cmd.Context(), aopts)
			if err != nil {
				return err
			}
			if format == "json" {
				return writeStatusJSON(cmd.OutOrStdout(), rep)
			}
			return writeStatusText(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format (json|text)")
	return cmd
}

type statusJSON struct {
	Timetable string            `json:"timetable"`
	Companies []statusEntryJSON `json:"companies"`
}

type statusEntryJSON struct {
	Name     string `json:"name"`
	Mail     string `json:"mail"`
	Next     string `json:"next"`
	Reminder uint64 `json:"reminder"`
	Due      bool   `json:"due"`
}

func writeStatusJSON(w io.Writer, rep app.StatusReport) error {
	out := statusJSON{Timetable: string(rep.Timetable), Companies: []statusEntryJSON{}}
	for _, e := range rep.Entries {
		out.Companies = append(out.Companies, statusEntryJSON{
			Name:     e.Name,
			Mail:     e.Mail,
			Next:     storage.FormatTimestamp(e.NextDue),
			Reminder: e.Reminder,
			Due:      e.Due,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeStatusText(w io.Writer, rep app.StatusReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "timetable: %s\n\n", rep.Timetable)
	fmt.Fprintln(tw, "COMPANY\tMAIL\tNEXT\tREMINDER\tDUE")
	for _, e := range rep.Entries {
		due := ""
		if e.Due {
			due = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", e.Name, e.Mail, storage.FormatTimestamp(e.NextDue), e.Reminder, due)
	}
	return tw.Flush()
}
