package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mickamy/auditlog"
)

var historyCmd = &cobra.Command{
	Use:   "history [root-type] [root-id]",
	Short: "Print the audit history of a root entity",
	Long: `Prints every change filed under the given root, oldest first, with its
ancestor context, e.g. "Max (User) -> Schnuffi (Pet) was added to Pets".`,
	Args: cobra.ExactArgs(2),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().String("from", "", "only events at or after this RFC 3339 time")
	historyCmd.Flags().String("to", "", "only events before this RFC 3339 time")
	historyCmd.Flags().Int("skip", 0, "number of events to skip")
	historyCmd.Flags().Int("take", 0, "maximum number of events (0 = all)")
	historyCmd.Flags().Bool("json", false, "output events as JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	q, err := historyQuery(cmd, args)
	if err != nil {
		return err
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")

	s, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	return printHistory(ctx, cmd.OutOrStdout(), s, q, auditlog.LocalizerFor(cfg.Locale), jsonOutput)
}

func historyQuery(cmd *cobra.Command, args []string) (auditlog.HistoryQuery, error) {
	q := auditlog.HistoryQuery{RootType: args[0], RootID: args[1]}
	q.Skip, _ = cmd.Flags().GetInt("skip")
	q.Take, _ = cmd.Flags().GetInt("take")
	for name, dst := range map[string]*time.Time{"from": &q.From, "to": &q.To} {
		v, _ := cmd.Flags().GetString(name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return q, fmt.Errorf("invalid --%s: %w", name, err)
		}
		*dst = t
	}
	return q, q.Validate()
}

// printHistory streams the history of q to w, one line per change or one JSON
// document per event.
func printHistory(ctx context.Context, w io.Writer, r auditlog.HistoryReader, q auditlog.HistoryQuery, l auditlog.Localizer, jsonOutput bool) error {
	enc := json.NewEncoder(w)
	for ev, err := range r.History(ctx, q) {
		if err != nil {
			return err
		}
		if jsonOutput {
			if err := enc.Encode(ev); err != nil {
				return fmt.Errorf("encoding event: %w", err)
			}
			continue
		}
		for _, line := range auditlog.FormatHistory([]auditlog.AuditEvent{ev}, l) {
			fmt.Fprintf(w, "%s  %s\n", ev.Timestamp.Format(time.DateTime), line)
		}
	}
	return nil
}
