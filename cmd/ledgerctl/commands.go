package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"ledger/models"
	"ledger/pkg/auth"
	"ledger/pkg/database"
	"ledger/pkg/enrich"
	"ledger/pkg/export"
	"ledger/pkg/store"
	"ledger/process/report"

	"github.com/spf13/cobra"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage operator accounts",
	}
	var role string
	create := &cobra.Command{
		Use:   "create <username> <password>",
		Short: "Create an operator account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			db, err := e.openDB()
			if err != nil {
				return err
			}
			svc := auth.NewService(db, e.cfg.Auth.JWTSecret, e.cfg.Auth.AccessTTL, e.cfg.Auth.RefreshTTL)
			err = svc.RegisterUser(cmd.Context(), args[0], args[1], role)
			if errors.Is(err, auth.ErrUserExists) {
				fmt.Fprintf(cmd.OutOrStdout(), "user %s already exists\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", args[0], role)
			return nil
		},
	}
	create.Flags().StringVar(&role, "role", models.RoleAccountant, "role name (administrator, accountant)")

	reset := &cobra.Command{
		Use:   "reset-password <username> <password>",
		Short: "Set a new password and sign the user out everywhere",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			db, err := e.openDB()
			if err != nil {
				return err
			}
			svc := auth.NewService(db, e.cfg.Auth.JWTSecret, e.cfg.Auth.AccessTTL, e.cfg.Auth.RefreshTTL)
			if err := svc.ResetPassword(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", args[0])
			return nil
		},
	}
	cmd.AddCommand(create, reset)
	return cmd
}

func reportCmd() *cobra.Command {
	var (
		month string
		list  bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print income and expense totals for a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := report.MonthRange(month); err != nil {
				return err
			}
			e, err := loadEnv()
			if err != nil {
				return err
			}
			db, err := e.openDB()
			if err != nil {
				return err
			}
			m, err := report.Build(cmd.Context(), store.NewPayments(db), month)
			if err != nil {
				return err
			}
			m.Write(cmd.OutOrStdout(), list)
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month to report (YYYY-MM)")
	cmd.Flags().BoolVar(&list, "list", false, "list matching rows")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}

func enrichCmd() *cobra.Command {
	var deal, contact, company, project int64
	cmd := &cobra.Command{
		Use:   "enrich <payment-id>",
		Short: "Fill the CRM names of a payment from Bitrix24",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || id == 0 {
				return fmt.Errorf("invalid payment id %q", args[0])
			}
			e, err := loadEnv()
			if err != nil {
				return err
			}
			db, err := e.openDB()
			if err != nil {
				return err
			}
			rdb := database.ConnectRedis(cmd.Context(), e.cfg.Redis, e.log)
			if rdb != nil {
				defer rdb.Close()
			}
			crm := enrich.NewCRM(e.cfg.Bitrix, rdb)
			if !crm.Ready() {
				return errors.New("BITRIX_WEBHOOK_URL is not set")
			}
			links := enrich.Links{
				DealID:    positive(deal),
				ContactID: positive(contact),
				CompanyID: positive(company),
				ProjectID: positive(project),
			}
			p, err := crm.Enricher(store.NewPayments(db)).Enrich(cmd.Context(), uint(id), links)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		},
	}
	cmd.Flags().Int64Var(&deal, "deal", 0, "deal id")
	cmd.Flags().Int64Var(&contact, "contact", 0, "contact id")
	cmd.Flags().Int64Var(&company, "company", 0, "company id")
	cmd.Flags().Int64Var(&project, "project", 0, "project (deal category) id")
	return cmd
}

func categoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "category <id>",
		Short: "Resolve a deal category id to its name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			crm := enrich.NewCRM(e.cfg.Bitrix, nil)
			if !crm.Ready() {
				return errors.New("BITRIX_WEBHOOK_URL is not set")
			}
			name, ok := crm.Categories.CategoryName(cmd.Context(), args[0]).Get()
			if !ok {
				return fmt.Errorf("category %s not found", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var (
		out      string
		from, to string
		f        store.PaymentFilter
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write payments to an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if f.DateFrom, err = flagDate(from); err != nil {
				return err
			}
			if f.DateTo, err = flagDate(to); err != nil {
				return err
			}
			e, err := loadEnv()
			if err != nil {
				return err
			}
			db, err := e.openDB()
			if err != nil {
				return err
			}
			items, err := store.NewPayments(db).List(cmd.Context(), f)
			if err != nil {
				return err
			}
			file, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := export.Payments(file, items); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d payments to %s\n", len(items), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "payments.xlsx", "output file")
	cmd.Flags().StringVar(&from, "from", "", "first date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.Project, "project", "", "project filter")
	cmd.Flags().StringVar(&f.Contractor, "contractor", "", "contractor filter")
	cmd.Flags().StringVar(&f.Category, "category", "", "category filter")
	cmd.Flags().StringVar(&f.Cashbox, "cashbox", "", "cashbox filter")
	cmd.Flags().StringVar(&f.OperationType, "type", "", "operation type filter (income, expense)")
	cmd.Flags().BoolVar(&f.SortByDate, "sort-by-date", false, "order by date instead of id")
	return cmd
}

func positive(v int64) *int64 {
	if v <= 0 {
		return nil
	}
	return &v
}

func flagDate(s string) (*models.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
