// Package cli implements invoicectl, the operator command line for editing
// invoice line items and notes.
package cli

import (
	"context"
	"os"
	"strings"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/config"
	"github.com/spf13/cobra"
)

const defaultAPIURL = "http://localhost:8080"

// App holds the global flags and the backend built from them
type App struct {
	APIURL       string
	Local        bool
	Output       string
	Verbose      bool
	VersionCheck bool

	// newBackend is replaced in tests
	newBackend func(ctx context.Context, app *App, cfg *config.Config) (*backend, error)
}

// NewRootCmd builds the invoicectl command tree
func NewRootCmd() *cobra.Command {
	app := &App{newBackend: openBackend}

	cmd := &cobra.Command{
		Use:          "invoicectl",
		Short:        "Edit catering invoice line items and notes",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Show the line items of an invoice
  invoicectl items 7f8c...

  # Change quantities and notes, then save everything at once
  invoicectl edit 7f8c... --set 1:qty=3 --set 2:price=12.50 --customer-notes "Serve at noon"

  # Ask the server to recompute totals
  invoicectl recalc 7f8c...
`),
	}

	cmd.PersistentFlags().StringVar(&app.APIURL, "api", envOr("CATERING_API_URL", defaultAPIURL), "Invoicing API base URL")
	cmd.PersistentFlags().BoolVar(&app.Local, "local", false, "Talk to the database directly instead of the API")
	cmd.PersistentFlags().StringVarP(&app.Output, "output", "o", envOr("CATERING_OUTPUT", "table"), "Output format (table|json)")
	cmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Log engine activity to stderr")
	cmd.PersistentFlags().BoolVar(&app.VersionCheck, "version-check", false, "Reject notes writes when the invoice changed since it was loaded")

	cmd.AddCommand(newItemsCmd(app))
	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newAddCmd(app))
	cmd.AddCommand(newUpdateCmd(app))
	cmd.AddCommand(newRemoveCmd(app))
	cmd.AddCommand(newRecalcCmd(app))

	return cmd
}

// withBackend loads configuration, opens the backend and runs fn with it
func (app *App) withBackend(cmd *cobra.Command, fn func(ctx context.Context, b *backend) error) error {
	if err := validateOutput(app.Output); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := app.newBackend(ctx, app, cfg)
	if err != nil {
		return err
	}
	defer b.Close(context.WithoutCancel(ctx))

	return fn(ctx, b)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
