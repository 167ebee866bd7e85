package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	apphttp "github.com/jhoicas/pos-ledger/internal/interfaces/http"
)

// ShutdownTimeout tiempo máximo para drenar peticiones al apagar.
const ShutdownTimeout = 10 * time.Second

type serveOptions struct {
	*RootOptions
	migrate bool
}

// NewServeCommand crea "pos serve".
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &serveOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta la API HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.migrate, "migrate", true, "aplicar el esquema antes de escuchar")
	return cmd
}

func runServe(parent context.Context, opts *serveOptions) error {
	cfg, log := opts.cfg, opts.log
	if cfg.JWT.Secret == "" {
		return commandError("JWT_SECRET requerido para serve", nil)
	}
	if parent == nil {
		parent = context.Background()
	}

	app, err := Bootstrap(parent, cfg, log)
	if err != nil {
		return commandError("inicializar", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error().Err(err).Msg("cerrar conexiones")
		}
	}()

	if opts.migrate {
		if err := app.Store.Migrate(parent); err != nil {
			return commandError("migrar esquema", err)
		}
	}

	server := apphttp.NewApp(cfg.App.Name)
	if err := apphttp.Router(server, app.RouterDeps()); err != nil {
		return commandError("configurar rutas", err)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listenErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr()).Str("env", cfg.App.Env).Msg("servidor HTTP escuchando")
		listenErr <- server.Listen(cfg.HTTP.Addr())
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			return commandError("servidor HTTP", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	log.Info().Msg("aplicación detenida")
	return nil
}
