package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Dan9191/finance-service/internal/models"
	"github.com/Dan9191/finance-service/internal/service"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword
var readPassword = term.ReadPassword

// Operations are the service calls the operator commands make
type Operations interface {
	AdminCreateUser(ctx context.Context, in service.AdminCreateUserInput) (*models.User, error)
	CreateAPIKey(ctx context.Context, name string) (string, *models.APIKey, error)
	CreatePlan(ctx context.Context, p *models.Plan) (*models.Plan, error)
}

// App is an opened environment: the database is reachable and migrations can run
type App struct {
	Ops     Operations
	Migrate func(ctx context.Context) error
	Close   func()
}

// Opener connects to the environment lazily so that --help works offline
type Opener func(ctx context.Context) (*App, error)

// NewRootCommand builds the financectl command tree
func NewRootCommand(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "financectl",
		Short:         "Operator tasks for the finance service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		migrateCommand(open),
		createAdminCommand(open),
		createAPIKeyCommand(open),
		createPlanCommand(open),
	)
	return root
}

func withApp(open Opener, fn func(cmd *cobra.Command, app *App) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		app, err := open(cmd.Context())
		if err != nil {
			return err
		}
		if app.Close != nil {
			defer app.Close()
		}
		return fn(cmd, app)
	}
}

func migrateCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: withApp(open, func(cmd *cobra.Command, app *App) error {
			if err := app.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("failed to apply migrations: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		}),
	}
}

// promptPassword reads a password without echo, asking twice
func promptPassword(w io.Writer) (string, error) {
	fmt.Fprint(w, "Password: ")
	first, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Fprint(w, "Repeat password: ")
	second, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}

func createAdminCommand(open Opener) *cobra.Command {
	var email, name string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: withApp(open, func(cmd *cobra.Command, app *App) error {
			password, err := promptPassword(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			user, err := app.Ops.AdminCreateUser(cmd.Context(), service.AdminCreateUserInput{
				Email:    email,
				Password: password,
				FullName: name,
				Role:     models.RoleAdmin,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Admin %s created (%s)\n", user.Email, user.ID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&name, "name", "", "admin full name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func createAPIKeyCommand(open Opener) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create-api-key",
		Short: "Issue an API key for automations; the key is shown once",
		RunE: withApp(open, func(cmd *cobra.Command, app *App) error {
			key, k, err := app.Ops.CreateAPIKey(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API key %q created. Store it now, it will not be shown again:\n%s\n", k.Name, key)
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "key owner or purpose")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func createPlanCommand(open Opener) *cobra.Command {
	var name, price, description string
	var interval int
	cmd := &cobra.Command{
		Use:   "create-plan",
		Short: "Create an active subscription plan",
		RunE: withApp(open, func(cmd *cobra.Command, app *App) error {
			amount, err := decimal.NewFromString(strings.ReplaceAll(price, ",", "."))
			if err != nil {
				return fmt.Errorf("invalid price %q: %w", price, err)
			}
			plan, err := app.Ops.CreatePlan(cmd.Context(), &models.Plan{
				Name:           name,
				Description:    description,
				Price:          amount,
				IntervalMonths: interval,
				Active:         true,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Plan %s created: %s every %d month(s) (%s)\n", plan.Name, plan.Price.StringFixed(2), plan.IntervalMonths, plan.ID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "plan name")
	cmd.Flags().StringVar(&price, "price", "", "price per period, e.g. 29.90")
	cmd.Flags().StringVar(&description, "description", "", "plan description")
	cmd.Flags().IntVar(&interval, "interval", 1, "billing period in months")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}
