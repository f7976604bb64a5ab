package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yairfalse/kartta/survey"
)

var (
	scanOutput   string
	scanFailOnly bool
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Survey cloud resources and evaluate checks",
	Long: `Survey the configured accounts and regions, resolve resource type
dependencies, and evaluate any loaded checks against the results.

The survey walks every requested resource type plus its dependencies,
paginating and retrying through provider rate limits. Results are
archived when a storage directory is configured.`,
	Example: `  kartta scan                      # Survey everything in kartta.yaml
  kartta scan --output json        # Emit resource records as JSON
  kartta scan --failed-only        # Only show resources failing checks`,
	RunE: runScanCmd,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "table", "Output format: table, json")
	scanCmd.Flags().BoolVar(&scanFailOnly, "failed-only", false, "Show only resources with failing checks")
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	if scanOutput != "table" && scanOutput != "json" {
		return fmt.Errorf("invalid output format: %s (must be table or json)", scanOutput)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, shutdown, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.Background()) }()

	outcome, err := a.runScan(ctx)
	if err != nil {
		return err
	}

	if err := renderStore(cmd.OutOrStdout(), outcome.View, scanOutput, scanFailOnly); err != nil {
		return err
	}
	if scanOutput == "table" {
		if err := renderFailures(cmd.OutOrStdout(), outcome.View); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d resources, %d checks evaluated, %d passed, %d failed\n",
		outcome.Evaluation.Resources, outcome.Evaluation.Evaluated,
		outcome.Evaluation.Passed, outcome.Evaluation.Failed)
	if outcome.Revision > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "archived as revision %d\n", outcome.Revision)
	}
	return nil
}

func renderStore(w io.Writer, store *survey.Store, format string, failOnly bool) error {
	cursor := store.Resources()
	if failOnly {
		cursor = cursor.Where("passed", survey.OpEq, false)
	}

	if format == "json" {
		records := []map[string]any{}
		for cursor.Next() {
			records = append(records, cursor.Resource().Record())
		}
		if err := cursor.Err(); err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVICE\tRESOURCE\tID\tCONTEXT\tCHECKS")
	for cursor.Next() {
		res := cursor.Resource()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			res.Service, res.Type, res.ID, res.Context.Name, checkColumn(res))
	}
	if err := cursor.Err(); err != nil {
		return err
	}
	return tw.Flush()
}

// renderFailures prints failing check messages grouped per resource
// type, one section per type in catalog order.
func renderFailures(w io.Writer, store *survey.Store) error {
	type failure struct {
		id      string
		check   string
		message string
	}
	sections := map[string][]failure{}
	var order []string

	cursor := store.Resources()
	for cursor.Next() {
		res := cursor.Resource()
		for _, result := range res.Results() {
			if result.Passed {
				continue
			}
			key := res.Service + "." + res.Type
			if _, seen := sections[key]; !seen {
				order = append(order, key)
			}
			sections[key] = append(sections[key], failure{
				id: res.ID, check: result.Name, message: result.Message,
			})
		}
	}
	if err := cursor.Err(); err != nil {
		return err
	}

	for _, key := range order {
		fmt.Fprintf(w, "\nfailing %s:\n", key)
		for _, f := range sections[key] {
			fmt.Fprintf(w, "  %s  %s: %s\n", f.id, f.check, f.message)
		}
	}
	return nil
}

func checkColumn(res *survey.Resource) string {
	results := res.Results()
	if len(results) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		mark := "ok"
		if !r.Passed {
			mark = "FAIL"
		}
		parts = append(parts, fmt.Sprintf("%s=%s", r.Name, mark))
	}
	return strings.Join(parts, ",")
}
