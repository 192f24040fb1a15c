package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"pfm/internal/commands"
	"pfm/internal/core"
)

// CancelledMessage is printed when a delete is not confirmed.
const CancelledMessage = "キャンセルしました"

// ErrConfirmationRequired is returned by delete when stdin is not a
// terminal and --yes was not given.
var ErrConfirmationRequired = errors.New("refusing to delete without --yes on non-interactive input")

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(historyCmd)

	addCmd.Flags().String("type", string(core.Expense), "income or expense")
	addCmd.Flags().String("amount", "", "amount, e.g. 1500 or 1,500")
	addCmd.Flags().String("category", "", "category name (default: first category of the kind)")
	addCmd.Flags().String("description", "", "optional description")
	addCmd.Flags().String("date", "", "date as YYYY-MM-DD (default: today)")

	deleteCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")

	historyCmd.Flags().Int("limit", 20, "number of entries to show")
}

// ─── add ────────────────────────────────────────────────

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a transaction",
	Example: `  pfm add --amount 1200 --category 食費 --description ランチ
  pfm add --type income --amount 250000 --category 給与`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, err := current()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	f := commands.NewForm(time.Now())
	if v, _ := cmd.Flags().GetString("type"); v != "" {
		if k, err := core.ParseKind(v); err == nil {
			f.Kind = k
		} else {
			f.Kind = core.Kind(v)
		}
	}
	f.Amount, _ = cmd.Flags().GetString("amount")
	f.Category, _ = cmd.Flags().GetString("category")
	f.Description, _ = cmd.Flags().GetString("description")
	if d, _ := cmd.Flags().GetString("date"); d != "" {
		f.Date = d
	}

	if f.Category == "" && f.Kind.Valid() {
		f.SyncCategory(a.Load(ctx).Categories)
	}

	if err := a.Commands.Create(ctx, f); err != nil {
		return errors.New(commands.Message(err))
	}
	a.persist(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "✅ %s\n", commands.CreatedMessage)
	return nil
}

// ─── delete ─────────────────────────────────────────────

var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a transaction",
	Long:  "Delete the transaction with the given ID, as printed by pfm list.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := current()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	id := strings.TrimSpace(args[0])

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), CancelledMessage)
			return nil
		}
	}

	if err := a.Commands.DeleteKey(ctx, id); err != nil {
		return errors.New(commands.Message(err))
	}
	a.persist(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "🗑️  %s\n", commands.DeletedMessage)
	return nil
}

// confirm asks the delete question on out and reads the answer from in.
func confirm(in io.Reader, out io.Writer) (bool, error) {
	if f, ok := in.(*os.File); ok && !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return false, ErrConfirmationRequired
	}
	fmt.Fprintf(out, "%s: %s [y/N] ", commands.DeleteConfirmTitle, commands.DeleteConfirmMessage)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "はい":
		return true, nil
	}
	return false, nil
}

// ─── history ────────────────────────────────────────────

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the mutations made from this terminal",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := current()
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")
	events, err := a.Repo.History(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(out, "履歴はありません")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, ev := range events {
		detail := ev.ID
		if ev.Action == core.MutationCreated {
			amount := ""
			if ev.Amount != nil {
				amount = core.FormatSignedCurrency(ev.Kind, *ev.Amount)
			}
			detail = strings.TrimSpace(ev.Category + " " + amount)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", humanize.Time(ev.Timestamp), ev.Action, detail)
	}
	return tw.Flush()
}
