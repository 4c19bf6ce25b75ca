package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/wodrun/internal/ir"
	"github.com/roach88/wodrun/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Label    string
	Delete   bool
}

// SessionView is one stored session as printed by history.
type SessionView struct {
	ID          string               `json:"id"`
	Workout     string               `json:"workout"`
	StartedAt   time.Time            `json:"started_at"`
	Records     int                  `json:"records"`
	Complete    bool                 `json:"complete"`
	Elapsed     string               `json:"elapsed,omitempty"`
	RootLabel   string               `json:"root_label,omitempty"`
	RecordsList []ir.ExecutionRecord `json:"record_list,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [session-id]",
		Short: "List stored workout sessions",
		Long: `List the sessions in the history database, or show the records of
one session.

With --label, list every stored record with that label across sessions,
e.g. all "Fran" results. With --delete, remove the given session.

Examples:
  wodrun history
  wodrun history 01928f6e-...
  wodrun history --label Thrusters
  wodrun history --delete 01928f6e-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := ""
			if len(args) == 1 {
				sessionID = args[0]
			}
			return runHistory(opts, sessionID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Config.DBPath, "path to SQLite history database")
	cmd.Flags().StringVar(&opts.Label, "label", "", "list records with this label")
	cmd.Flags().BoolVar(&opts.Delete, "delete", false, "delete the given session")

	return cmd
}

func runHistory(opts *HistoryOptions, sessionID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	// Reading never creates a database.
	if _, err := os.Stat(opts.Database); err != nil {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
		return WrapExitError(ExitCommandError, ErrCodeNotFound, err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return storeError(formatter, err)
	}
	defer st.Close()

	switch {
	case opts.Delete:
		if sessionID == "" {
			return NewExitError(ExitCommandError, "--delete needs a session id")
		}
		err := st.DeleteSession(ctx, sessionID)
		if errors.Is(err, sql.ErrNoRows) {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("session not found: %s", sessionID), nil)
			return WrapExitError(ExitCommandError, ErrCodeNotFound, err)
		}
		if err != nil {
			return storeError(formatter, err)
		}
		return formatter.Lines([]string{"✓ deleted " + sessionID}, map[string]string{"deleted": sessionID})

	case opts.Label != "":
		records, err := st.ReadRecordsByLabel(ctx, opts.Label)
		if err != nil {
			return storeError(formatter, err)
		}
		return formatter.Lines(recordLines(records), records)

	case sessionID != "":
		summary, err := st.GetSessionSummary(ctx, sessionID)
		if errors.Is(err, sql.ErrNoRows) {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("session not found: %s", sessionID), nil)
			return WrapExitError(ExitCommandError, ErrCodeNotFound, err)
		}
		if err != nil {
			return storeError(formatter, err)
		}
		records, err := st.ReadRecords(ctx, sessionID)
		if err != nil {
			return storeError(formatter, err)
		}
		view := sessionView(summary)
		view.RecordsList = records
		return formatter.Lines(append([]string{sessionLine(view)}, recordLines(records)...), view)

	default:
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return storeError(formatter, err)
		}
		views := make([]SessionView, 0, len(sessions))
		lines := make([]string, 0, len(sessions))
		for _, sess := range sessions {
			summary, err := st.GetSessionSummary(ctx, sess.ID)
			if err != nil {
				return storeError(formatter, err)
			}
			view := sessionView(summary)
			views = append(views, view)
			lines = append(lines, sessionLine(view))
		}
		if len(lines) == 0 {
			lines = []string{"No sessions."}
		}
		return formatter.Lines(lines, views)
	}
}

func sessionView(summary store.SessionSummary) SessionView {
	view := SessionView{
		ID:        summary.Session.ID,
		Workout:   summary.Session.Workout,
		StartedAt: summary.Session.StartedAt,
		Records:   summary.Records,
		Complete:  summary.IsComplete,
		RootLabel: summary.RootLabel,
	}
	if summary.IsComplete {
		view.Elapsed = ir.FormatDuration(summary.Elapsed)
	}
	return view
}

func sessionLine(v SessionView) string {
	state := "incomplete"
	if v.Complete {
		state = v.Elapsed
	}
	return fmt.Sprintf("%s  %s  %s  %s (%d records)",
		v.ID, v.StartedAt.Format(time.RFC3339), v.Workout, state, v.Records)
}

func recordLines(records []ir.ExecutionRecord) []string {
	lines := make([]string, len(records))
	for i, rec := range records {
		lines[i] = "  " + RecordLine(rec)
	}
	return lines
}

func storeError(formatter *OutputFormatter, err error) error {
	_ = formatter.Error(ErrCodeStore, err.Error(), nil)
	return WrapExitError(ExitCommandError, ErrCodeStore, err)
}
