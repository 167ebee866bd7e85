// Package cli es la consola del punto de venta: servidor HTTP, migraciones,
// datos iniciales y consultas/ajustes de stock.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhoicas/pos-ledger/pkg/config"
	"github.com/jhoicas/pos-ledger/pkg/logger"
)

// RootOptions banderas globales.
type RootOptions struct {
	LogLevel string
	Format   string // text | json

	cfg *config.Config
	log *logger.Logger
	out io.Writer
}

func (o *RootOptions) printer() printer { return printer{format: o.Format, w: o.out} }

// NewRootCommand crea el comando raíz "pos".
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{out: os.Stdout})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pos",
		Short: "Punto de venta multi-sucursal",
		Long: `Inventario por sucursal, ventas y apartados sobre un almacén SQLite o PostgreSQL.

La configuración se lee de variables de entorno (APP_ENV, DB_DRIVER, SQLITE_PATH,
LOCK_MODE, CACHE_DRIVER, EVENTS_DRIVER, JWT_SECRET, ...) y opcionalmente de .env.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.Format != "text" && opts.Format != "json" {
				return commandError(fmt.Sprintf("formato inválido %q (text|json)", opts.Format), nil)
			}
			if opts.cfg == nil {
				cfg, err := config.Load()
				if err != nil {
					return commandError("cargar configuración", err)
				}
				opts.cfg = cfg
			}
			level := opts.cfg.App.LogLevel
			if opts.LogLevel != "" {
				level = opts.LogLevel
			}
			if opts.log == nil {
				opts.log = logger.New(logger.Config{
					Env:     opts.cfg.App.Env,
					Level:   level,
					Service: opts.cfg.App.Name,
				})
			}
			if opts.out == nil {
				opts.out = cmd.OutOrStdout()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "nivel de log (sobrescribe LOG_LEVEL)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "formato de salida (text|json)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewStockCommand(opts))
	return cmd
}

// Execute corre la consola y devuelve el código de salida.
func Execute() int {
	opts := &RootOptions{out: os.Stdout}
	cmd := newRootCommand(opts)
	if err := cmd.Execute(); err != nil {
		opts.printer().failure(err)
		return ExitCode(err)
	}
	return ExitSuccess
}
