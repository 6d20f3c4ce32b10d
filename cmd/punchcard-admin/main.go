// Operator CLI: migrations, event retention and quick ledger queries
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"punchcard/internal/core/clockwork"
	"punchcard/internal/modkit/repokit"
	"punchcard/internal/platform/config"
	"punchcard/internal/platform/logger"
	"punchcard/internal/platform/store"
	"punchcard/migrations"

	attrepo "punchcard/internal/services/attendance/repo"
	attsvc "punchcard/internal/services/attendance/service"
	dirrepo "punchcard/internal/services/directory/repo"
	dirsvc "punchcard/internal/services/directory/service"
	ingrepo "punchcard/internal/services/ingest/repo"
	polrepo "punchcard/internal/services/policy/repo"
	polsvc "punchcard/internal/services/policy/service"
)

func main() {
	root := &cobra.Command{
		Use:           "punchcard-admin",
		Short:         "Punchcard operations toolbox",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(migrateCmd(), purgeEventsCmd(), policyCmd(), attendanceCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func pgURL() string {
	return config.New().Prefix("SERVICE_PGSQL_").MustString("DBURL")
}

// openPG opens the platform store for commands that go through the repos
func openPG(ctx context.Context) (*store.Store, error) {
	return store.Open(ctx, store.Config{
		AppName: "punchcard",
		PG: store.PGConfig{
			Enabled: true,
			URL:     pgURL(),
			LogSQL:  false,
		},
	}, store.WithLogger(*logger.Get()))
}

func migrateCmd() *cobra.Command {
	var statusOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if statusOnly {
				return store.MigrateStatus(ctx, pgURL(), migrations.FS)
			}
			if err := store.Migrate(ctx, pgURL(), migrations.FS); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "print migration status instead of applying")
	return cmd
}

func purgeEventsCmd() *cobra.Command {
	var keepDays int

	cmd := &cobra.Command{
		Use:   "purge-events",
		Short: "Delete recognition events older than the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := openPG(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close(ctx) }()

			cutoff := time.Now().UTC().AddDate(0, 0, -keepDays)
			var n int64
			err = repokit.WithTx(ctx, st.PG, func(q repokit.Queryer) error {
				n, err = ingrepo.NewPG().Bind(q).PurgeOlderThan(ctx, cutoff)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Printf("purged %d events captured before %s\n", n, cutoff.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().IntVar(&keepDays, "keep-days", 90, "events newer than this many days survive")
	return cmd
}

func policyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Attendance policy queries",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List attendance policies",
		RunE: func(c *cobra.Command, _ []string) error {
			ctx := c.Context()
			st, err := openPG(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close(ctx) }()

			policies, err := polsvc.NewPolicies(st.PG, polrepo.NewPG()).List(ctx)
			if err != nil {
				return err
			}

			tw := tablewriter.NewWriter(os.Stdout)
			tw.SetHeader([]string{"ID", "Name", "Shift", "Active", "Default", "Entry Window", "Exit Window"})
			for _, p := range policies {
				tw.Append([]string{
					p.ID.String(), p.Name, p.ShiftID.String(),
					fmt.Sprintf("%t", p.IsActive), fmt.Sprintf("%t", p.IsDefault),
					fmt.Sprintf("-%dm..+%dm", p.EntryStartMin, p.EntryEndMin),
					fmt.Sprintf("-%dm..+%dm", p.ExitStartMin, p.ExitEndMin),
				})
			}
			tw.Render()
			return nil
		},
	})
	return cmd
}

func attendanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attendance",
		Short: "Attendance ledger queries",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "day <employee-code> <yyyy-mm-dd>",
		Short: "Show one employee's records for a business date",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			d, err := clockwork.ParseDate(args[1])
			if err != nil {
				return err
			}

			st, err := openPG(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close(ctx) }()

			employees := dirsvc.New(st.PG, dirrepo.NewPG())
			emp, err := employees.GetByCode(ctx, args[0])
			if err != nil {
				return err
			}

			ledger := attsvc.New(st.PG, attrepo.NewPG())
			records, err := ledger.Day(ctx, emp.ID, d)
			if err != nil {
				return err
			}

			tw := tablewriter.NewWriter(os.Stdout)
			tw.SetHeader([]string{"Time (UTC)", "Type", "Late", "Early", "Overtime", "Duration", "Status"})
			for _, r := range records {
				dur := "-"
				if r.DurationMinutes != nil {
					dur = fmt.Sprintf("%dm", *r.DurationMinutes)
				}
				tw.Append([]string{
					r.EventTime.UTC().Format("15:04:05"), string(r.EventType),
					fmt.Sprintf("%t", r.IsLate), fmt.Sprintf("%t", r.IsEarlyLeave),
					fmt.Sprintf("%t", r.IsOvertime), dur, string(r.Status),
				})
			}
			tw.Render()
			return nil
		},
	})
	return cmd
}
