package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yairfalse/kartta/config"
	"github.com/yairfalse/kartta/storage"
)

var (
	reportService     string
	reportResource    string
	reportDisappeared bool
	reportOutput      string
	reportRevision    int64
	reportID          string
	reportChanges     bool
	reportFrom        int64
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Query archived survey history",
	Long: `Query the archive built up by previous scans.

Every scan records a new revision, so the archive answers questions like
which resources existed at a given revision, which have disappeared, and
what a specific resource looked like in the past.`,
	Example: `  kartta report --service ec2 --resource instances  # Current states
  kartta report --disappeared                        # Gone since last scan
  kartta report --changes                            # Diff the last two scans
  kartta report --changes --from 3                   # Diff revision 3 vs latest
  kartta report --service kms --resource keys --id k-1 --revision 3`,
	RunE: runReportCmd,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportService, "service", "", "Filter by service")
	reportCmd.Flags().StringVar(&reportResource, "resource", "", "Filter by resource type")
	reportCmd.Flags().StringVar(&reportID, "id", "", "Look up one resource by id")
	reportCmd.Flags().Int64Var(&reportRevision, "revision", 0, "Show the record at a past revision (requires --id)")
	reportCmd.Flags().BoolVar(&reportDisappeared, "disappeared", false, "Show resources missing from the latest scan")
	reportCmd.Flags().BoolVar(&reportChanges, "changes", false, "Show differences between two revisions")
	reportCmd.Flags().Int64Var(&reportFrom, "from", 0, "Base revision for --changes (default: previous scan)")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "table", "Output format: table, json")
}

func runReportCmd(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.StorageDir == "" {
		return fmt.Errorf("no storage directory configured, nothing to report on")
	}

	archive, err := storage.NewArchive(cfg.StorageDir)
	if err != nil {
		return err
	}
	defer archive.Close()

	out := cmd.OutOrStdout()

	if reportChanges {
		return reportChangesBetween(out, archive)
	}

	if reportRevision > 0 {
		if reportService == "" || reportResource == "" || reportID == "" {
			return fmt.Errorf("--revision requires --service, --resource and --id")
		}
		record, err := archive.RecordAt(reportRevision, reportService, reportResource, reportID)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	}

	var states []*storage.ResourceState
	switch {
	case reportDisappeared:
		states = archive.Disappeared()
	case reportService != "" && reportResource != "":
		states = archive.ByType(reportService, reportResource)
	default:
		return fmt.Errorf("specify --service and --resource, or --disappeared")
	}
	if reportID != "" {
		states = filterStatesByID(states, reportID)
	}

	if reportOutput == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(states)
	}
	renderStates(out, states, archive.CurrentRevision())
	return nil
}

func reportChangesBetween(out io.Writer, archive *storage.Archive) error {
	to := archive.CurrentRevision()
	from := reportFrom
	if from == 0 {
		from = to - 1
	}
	if from < 1 {
		return fmt.Errorf("need at least two recorded scans to diff")
	}

	events, err := archive.Changes(from, to)
	if err != nil {
		return err
	}
	if reportService != "" {
		var kept []storage.ChangeEvent
		for _, ev := range events {
			if ev.Service == reportService {
				kept = append(kept, ev)
			}
		}
		events = kept
	}

	if reportOutput == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVICE\tRESOURCE\tID\tCHANGE")
	for _, ev := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ev.Service, ev.Resource, ev.ID, ev.ChangeType)
	}
	_ = tw.Flush()
	fmt.Fprintf(out, "\n%d changes between revisions %d and %d\n", len(events), from, to)
	return nil
}

func filterStatesByID(states []*storage.ResourceState, id string) []*storage.ResourceState {
	var kept []*storage.ResourceState
	for _, s := range states {
		if s.ID == id {
			kept = append(kept, s)
		}
	}
	return kept
}

func renderStates(w io.Writer, states []*storage.ResourceState, currentRev int64) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVICE\tRESOURCE\tID\tFIRST SEEN\tLAST SEEN\tSTATUS")
	for _, s := range states {
		status := "present"
		if !s.Exists {
			status = fmt.Sprintf("disappeared@%d", s.DisappearedRev)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\tr%d\tr%d\t%s\n",
			s.Service, s.Resource, s.ID, s.FirstSeenRev, s.LastSeenRev, status)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n%d resources, archive at revision %d\n", len(states), currentRev)
}
