package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Additional-Code/printcore/internal/app"
	"github.com/Additional-Code/printcore/internal/config"
	"github.com/Additional-Code/printcore/internal/connection"
	"github.com/Additional-Code/printcore/internal/database"
	"github.com/Additional-Code/printcore/internal/messaging"
	"github.com/Additional-Code/printcore/internal/migration"
	"github.com/Additional-Code/printcore/internal/seeder"
	"github.com/Additional-Code/printcore/internal/service/printing"
)

const stopTimeout = 10 * time.Second

// NewRootCommand builds the root printcore CLI command.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "printcore",
		Short: "Kitchen printer daemon and tooling",
	}

	root.AddCommand(newStartCmd())
	root.AddCommand(newWorkerCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newPrinterCmd())
	root.AddCommand(newPrintCmd())

	return root
}

// Execute runs the printcore CLI until ctx is cancelled.
func Execute(ctx context.Context) error {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "start",
		Aliases: []string{"run"},
		Short:   "Run the print daemon with its HTTP and health servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUntilDone(cmd.Context(), app.Module)
		},
	}
}

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage the order feed consumer",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Consume order snapshots without the HTTP surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUntilDone(cmd.Context(), app.Worker)
		},
	})
	return cmd
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run print state schema migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			var mig *migration.Migrator
			opts := fx.Options(app.Base, database.Module, migration.Module, fx.Populate(&mig))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				if err := mig.Up(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			all, _ := cmd.Flags().GetBool("all")
			var mig *migration.Migrator
			opts := fx.Options(app.Base, database.Module, migration.Module, fx.Populate(&mig))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				if err := mig.Down(ctx, steps, all); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
				return nil
			})
		},
	}
	downCmd.Flags().Int("steps", 1, "Number of migration steps to rollback")
	downCmd.Flags().Bool("all", false, "Rollback all applied migrations")

	cmd.AddCommand(upCmd, downCmd)
	return cmd
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Publish a demo order snapshot on the feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			var seed *seeder.Seeder
			opts := fx.Options(app.Base, messaging.Module, seeder.Module, fx.Populate(&seed))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				snap, err := seed.Orders(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "published snapshot %s with %d orders\n", snap.SnapshotID, len(snap.Orders))
				return nil
			})
		},
	}
}

func newPrinterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "printer",
		Short: "Inspect printing peripherals",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "discover",
		Short: "List visible printers",
		RunE: func(cmd *cobra.Command, args []string) error {
			var link *connection.Manager
			opts := fx.Options(app.Base, app.Device, fx.Populate(&link))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				devices := link.Discover(ctx)
				if len(devices) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no printers found")
					return nil
				}
				for _, d := range devices {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", d.Address, d.Name)
				}
				return nil
			})
		},
	})
	return cmd
}

func newPrintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "print",
		Short: "Send tickets to the printer",
	}
	testCmd := &cobra.Command{
		Use:   "test",
		Short: "Print a sample ticket",
		RunE: func(cmd *cobra.Command, args []string) error {
			kindFlag, _ := cmd.Flags().GetString("kind")
			kind, err := printing.ParseKind(kindFlag)
			if err != nil {
				return err
			}

			var (
				cfg config.Config
				svc *printing.Service
			)
			opts := fx.Options(app.Base, app.Storage, app.Device, app.Printing, fx.Populate(&cfg, &svc))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				order := seeder.SampleOrders(time.Now())[0]
				order.ID = "test-" + uuid.NewString()
				order.Number = "TEST"

				out := svc.RequestPrint(ctx, order, kind, printing.Options{})
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(out); err != nil {
					return err
				}
				if !out.Printed() {
					return fmt.Errorf("test print to %s failed: %w", cfg.Printer.Address, out.Err())
				}
				return nil
			})
		},
	}
	testCmd.Flags().String("kind", string(printing.KindKitchen), "Ticket kind: kitchen, receipt or both")
	cmd.AddCommand(testCmd)
	return cmd
}

func runUntilDone(ctx context.Context, opts fx.Option) error {
	application := fx.New(opts)
	if err := application.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return application.Stop(stopCtx)
}

func runWithApp(ctx context.Context, opts fx.Option, fn func(context.Context) error) error {
	application := fx.New(opts, fx.NopLogger)
	if err := application.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		_ = application.Stop(stopCtx)
	}()
	return fn(ctx)
}
