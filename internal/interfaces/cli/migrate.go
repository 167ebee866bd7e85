package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMigrateCommand crea "pos migrate": aplica el esquema del almacén configurado.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica el esquema del almacén (idempotente)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := OpenStore(ctx, opts.cfg)
			if err != nil {
				return commandError("abrir almacén", err)
			}
			defer st.Close()

			if err := st.Migrate(ctx); err != nil {
				return commandError("migrar esquema", err)
			}
			version, err := st.SchemaVersion(ctx)
			if err != nil {
				return commandError("leer versión de esquema", err)
			}
			opts.log.Info().Str("db", opts.cfg.DB.Driver).Int("version", version).Msg("esquema aplicado")
			return opts.printer().success(
				fmt.Sprintf("esquema %s en versión %d", opts.cfg.DB.Driver, version),
				map[string]any{"driver": opts.cfg.DB.Driver, "version": version},
			)
		},
	}
}
