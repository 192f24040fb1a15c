package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pfm/internal/core"
	"pfm/internal/viewmodel"
)

// EmptyMessage is printed in place of an empty transaction list.
const EmptyMessage = "まだ取引がありません"

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(categoriesCmd)

	listCmd.Flags().String("type", "", "only show income or expense")
	listCmd.Flags().Bool("json", false, "print the view model as JSON")
	categoriesCmd.Flags().String("type", "", "only show income or expense categories")
}

// ─── list ───────────────────────────────────────────────

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the balance and all transactions, newest first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := current()
	if err != nil {
		return err
	}
	kind, err := kindFlag(cmd)
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	snap := a.Load(cmd.Context())
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	printBanner(out, snap)
	printTotals(out, snap)

	rows := snap.Rows()
	if kind != "" {
		filtered := rows[:0:0]
		for _, r := range rows {
			if r.Kind == kind {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}

	fmt.Fprintf(out, "\n📋 取引履歴  %d 件\n", len(rows))
	if len(rows) == 0 {
		fmt.Fprintf(out, "📭 %s\n", EmptyMessage)
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\t\tカテゴリ\t説明\t日付\t金額")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Icon, r.Category, r.Description, r.Date, r.Amount)
	}
	return tw.Flush()
}

// ─── summary ────────────────────────────────────────────

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the totals and the amount per category",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	a, err := current()
	if err != nil {
		return err
	}
	snap := a.Load(cmd.Context())
	out := cmd.OutOrStdout()
	printBanner(out, snap)
	printTotals(out, snap)

	if snap.Summary == nil || len(snap.Summary.ByCategory) == 0 {
		return nil
	}
	type entry struct {
		name   string
		amount core.Amount
	}
	entries := make([]entry, 0, len(snap.Summary.ByCategory))
	for name, amt := range snap.Summary.ByCategory {
		entries = append(entries, entry{name, amt})
	}
	sort.Slice(entries, func(i, j int) bool {
		if c := entries[i].amount.Cmp(entries[j].amount.Decimal); c != 0 {
			return c > 0
		}
		return entries[i].name < entries[j].name
	})

	fmt.Fprintln(out, "\nカテゴリ別")
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\n", e.name, core.FormatCurrency(e.amount))
	}
	return tw.Flush()
}

// ─── categories ─────────────────────────────────────────

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the categories known to the API",
	Args:  cobra.NoArgs,
	RunE:  runCategories,
}

func runCategories(cmd *cobra.Command, args []string) error {
	a, err := current()
	if err != nil {
		return err
	}
	kind, err := kindFlag(cmd)
	if err != nil {
		return err
	}

	snap := a.Load(cmd.Context())
	out := cmd.OutOrStdout()
	printBanner(out, snap)

	cats := snap.Categories
	if kind != "" {
		cats = snap.CategoriesOf(kind)
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, c := range cats {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Icon, c.Name, c.Kind)
	}
	return tw.Flush()
}

// kindFlag reads --type. An empty flag means both kinds.
func kindFlag(cmd *cobra.Command) (core.Kind, error) {
	v, _ := cmd.Flags().GetString("type")
	if v == "" {
		return "", nil
	}
	return core.ParseKind(v)
}

func printBanner(w io.Writer, snap viewmodel.Snapshot) {
	if snap.Error != "" {
		fmt.Fprintf(w, "⚠️  %s\n\n", snap.Error)
	}
}

func printTotals(w io.Writer, snap viewmodel.Snapshot) {
	income, expense, balance := snap.Totals()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "総残高\t%s\n", core.FormatCurrency(balance))
	fmt.Fprintf(tw, "収入\t%s\n", core.FormatCurrency(income))
	fmt.Fprintf(tw, "支出\t%s\n", core.FormatCurrency(expense))
	tw.Flush()
}
