package cmd

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"conti/internal/core"
	"conti/internal/export"
	"conti/internal/ledger"
	"conti/internal/storage"
)

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the ledger file or bring its schema up to date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if err := storage.RunMigrations(cfg.SQLiteDBPath); err != nil {
				return err
			}
			version, dirty, err := storage.SchemaVersion(cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: schema version %d (dirty=%t)\n", cfg.SQLiteDBPath, version, dirty)
			return nil
		},
	}
}

func (a *app) accountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			accounts, err := svc.Accounts(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tKIND\tCOLOR")
			for _, acc := range accounts {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", acc.ID, acc.Name, acc.Kind, deref(acc.Color))
			}
			return tw.Flush()
		},
	}
}

func (a *app) accountCmd() *cobra.Command {
	account := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}

	var kind, color string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := core.ParseAccountKind(kind)
			if err != nil {
				return err
			}
			acc := core.Account{Name: args[0], Kind: k}
			if color != "" {
				acc.Color = &color
			}

			svc, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			id, err := svc.CreateAccount(cmd.Context(), acc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "account %d created\n", id)
			return nil
		},
	}
	add.Flags().StringVar(&kind, "kind", "standard", "standard or reimbursable")
	add.Flags().StringVar(&color, "color", "", "display color")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an account without transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("account id %q: %w", args[0], core.ErrInvalidAccount)
			}
			svc, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.DeleteAccount(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "account %d deleted\n", id)
			return nil
		},
	}

	account.AddCommand(add, del)
	return account
}

func (a *app) categoryCmd() *cobra.Command {
	category := &cobra.Command{
		Use:   "category",
		Short: "Manage categories",
	}

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Get or create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			id, err := svc.EnsureCategory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "category %d\n", id)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			cats, err := svc.Categories(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range cats {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", c.ID, c.Name)
			}
			return nil
		},
	}

	category.AddCommand(add, list)
	return category
}

func (a *app) txCmd() *cobra.Command {
	tx := &cobra.Command{
		Use:   "tx",
		Short: "Manage transactions",
	}

	var (
		accountID int64
		date      string
		amount    string
		category  string
		note      string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := core.ParseDate(date)
			if err != nil {
				return fmt.Errorf("date %q: %w", date, err)
			}
			m, err := core.ParseAmount(amount)
			if err != nil {
				return fmt.Errorf("amount %q: %w", amount, err)
			}
			t := core.Transaction{AccountID: accountID, Date: d, Amount: m}
			if note != "" {
				t.Note = &note
			}

			svc, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			if category != "" {
				catID, err := svc.EnsureCategory(cmd.Context(), category)
				if err != nil {
					return err
				}
				t.CategoryID = &catID
			}
			id, err := svc.AddTransaction(cmd.Context(), t)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "transaction %d recorded\n", id)
			return nil
		},
	}
	add.Flags().Int64Var(&accountID, "account", 0, "account id")
	add.Flags().StringVar(&date, "date", "", "booking day (YYYY-MM-DD or DD.MM.YYYY)")
	add.Flags().StringVar(&amount, "amount", "", "signed amount, e.g. -12,50")
	add.Flags().StringVar(&category, "category", "", "category name, created when missing")
	add.Flags().StringVar(&note, "note", "", "free text")
	_ = add.MarkFlagRequired("account")
	_ = add.MarkFlagRequired("date")
	_ = add.MarkFlagRequired("amount")

	tx.AddCommand(add)
	return tx
}

func (a *app) searchCmd() *cobra.Command {
	var (
		all     bool
		csvOut  bool
		columns []string
	)
	search := &cobra.Command{
		Use:   "search",
		Short: "Search transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := searchParams(cmd)

			svc, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			run := svc.Search
			if all || csvOut {
				run = svc.SearchAll
			}
			res, err := run(cmd.Context(), params)
			if err != nil {
				return err
			}
			if csvOut {
				return export.WriteCSV(cmd.OutOrStdout(), export.FromSearch("Transactions", res, columns))
			}
			return printSearch(cmd.OutOrStdout(), res)
		},
	}

	f := search.Flags()
	f.String("query", "", "text matched against note and category")
	f.Int64("account", 0, "account id")
	f.String("from", "", "first day, inclusive")
	f.String("to", "", "last day, inclusive")
	f.String("type", "all", "all, income or expense")
	f.String("sort", "date", "date, category, description, amount, account or id")
	f.Bool("desc", false, "sort descending")
	f.Int("limit", ledger.DefaultLimit, "page size")
	f.Int("offset", 0, "page offset, negative for the last page")
	f.BoolVar(&all, "all", false, "every matching row, ignoring paging")
	f.BoolVar(&csvOut, "csv", false, "write every matching row as CSV")
	f.StringSliceVar(&columns, "columns", nil, "CSV columns")
	return search
}

// searchParams maps the flags the user actually set. Untouched flags stay
// nil so the filter applies its own defaults.
func searchParams(cmd *cobra.Command) ledger.SearchParams {
	f := cmd.Flags()
	str := func(name string) *string {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetString(name)
		return &v
	}
	num := func(name string) *int {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetInt(name)
		return &v
	}

	p := ledger.SearchParams{
		Query:    str("query"),
		DateFrom: str("from"),
		DateTo:   str("to"),
		Type:     str("type"),
		SortBy:   str("sort"),
		Limit:    num("limit"),
		Offset:   num("offset"),
	}
	if f.Changed("account") {
		id, _ := f.GetInt64("account")
		p.AccountID = &id
	}
	if desc, _ := f.GetBool("desc"); desc {
		dir := "desc"
		p.SortDir = &dir
	}
	return p
}

func printSearch(w io.Writer, res ledger.SearchResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tACCOUNT\tCATEGORY\tAMOUNT\tNOTE")
	for _, r := range res.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Date.ISO(), r.AccountName, deref(r.CategoryName), r.Amount.Format(), deref(r.Note))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := res.Sums
	fmt.Fprintf(w, "\nrows %d (offset %d, limit %d)\n", res.Total, res.Offset, res.Limit)
	fmt.Fprintf(w, "income %s  expense %s  opening %s  saldo %s\n",
		s.Income.Format(), s.Expense.Format(), s.Init.Format(), s.Saldo().Format())
	return nil
}

func (a *app) reconcileCmd() *cobra.Command {
	var (
		csvOut  bool
		columns []string
	)
	reconcile := &cobra.Command{
		Use:   "reconcile <account-id>",
		Short: "Show what a reimbursable account is still owed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("account id %q: %w", args[0], core.ErrInvalidAccount)
			}
			svc, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			rep, err := svc.Reconcile(cmd.Context(), id)
			if err != nil {
				return err
			}
			if csvOut {
				return export.WriteCSV(cmd.OutOrStdout(), export.FromReport(rep, columns))
			}
			return printReport(cmd.OutOrStdout(), rep)
		},
	}
	reconcile.Flags().BoolVar(&csvOut, "csv", false, "write the report as CSV")
	reconcile.Flags().StringSliceVar(&columns, "columns", nil, "CSV columns")
	return reconcile
}

func printReport(w io.Writer, rep ledger.Report) error {
	fmt.Fprintf(w, "%s  period %s\n\n", rep.AccountName, rep.Period)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tCATEGORY\tAMOUNT\tOUTSTANDING\tNOTE")
	for _, rr := range rep.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			rr.Row.Date.ISO(), deref(rr.Row.CategoryName), rr.Row.Amount.Format(), rr.Adjusted.Format(), rr.Note)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nbalance %s  carry %s  outstanding %s  remaining carry %s\n",
		rep.CurrentBalance.Format(), rep.InitialCarry.Format(), rep.TotalOutstanding.Format(), rep.RemainingCarry.Format())
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
