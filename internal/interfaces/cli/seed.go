package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/application/usecase"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

type seedOptions struct {
	*RootOptions
	branch   string
	username string
	password string
	name     string
}

// SeedResult resumen de "pos seed".
type SeedResult struct {
	BranchID      string `json:"branch_id"`
	BranchCreated bool   `json:"branch_created"`
	UserID        string `json:"user_id"`
	UserCreated   bool   `json:"user_created"`
}

// NewSeedCommand crea "pos seed": sucursal inicial y usuario administrador.
// Es idempotente; lo existente no se modifica.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &seedOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Crea la sucursal inicial y el usuario administrador",
		Example: `  pos seed --password 'cambiar-esto'
  pos seed --branch "Sucursal Centro" --username gerente --password s3creta`,
		Args: cobra.NoArgs,
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

			res, err := seed(ctx, st, opts)
			if err != nil {
				return operationError("seed", err)
			}
			opts.log.Info().
				Str("branch_id", res.BranchID).Bool("branch_created", res.BranchCreated).
				Str("user_id", res.UserID).Bool("user_created", res.UserCreated).
				Msg("datos iniciales")
			return opts.printer().success(
				fmt.Sprintf("sucursal %s (nueva: %t), usuario %s (nuevo: %t)", res.BranchID, res.BranchCreated, res.UserID, res.UserCreated),
				res,
			)
		},
	}
	cmd.Flags().StringVar(&opts.branch, "branch", "Matriz", "nombre de la sucursal inicial")
	cmd.Flags().StringVar(&opts.username, "username", "admin", "usuario administrador")
	cmd.Flags().StringVar(&opts.password, "password", "", "contraseña del administrador (requerida)")
	cmd.Flags().StringVar(&opts.name, "name", "Administrador", "nombre visible del administrador")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func seed(ctx context.Context, st LedgerStore, opts *seedOptions) (*SeedResult, error) {
	repos := st.Repositories()
	branches := usecase.NewBranchUseCase(repos.Branches, opts.cfg.Sales.DefaultTaxRate)
	users := usecase.NewUserUseCase(st.Users(), repos.Branches)
	res := &SeedResult{}

	list, err := branches.List(ctx, true)
	if err != nil {
		return nil, err
	}
	for _, b := range list {
		if strings.EqualFold(b.Name, strings.TrimSpace(opts.branch)) {
			res.BranchID = b.ID
			break
		}
	}
	if res.BranchID == "" {
		b, err := branches.Create(ctx, dto.CreateBranchRequest{Name: opts.branch})
		if err != nil {
			return nil, err
		}
		res.BranchID, res.BranchCreated = b.ID, true
	}

	existing, err := st.Users().GetByUsername(ctx, strings.ToLower(strings.TrimSpace(opts.username)))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		res.UserID = existing.ID
		return res, nil
	}
	u, err := users.Create(ctx, dto.CreateUserRequest{
		Username: opts.username,
		Password: opts.password,
		Name:     opts.name,
		Role:     entity.RoleAdmin,
		BranchID: res.BranchID,
	})
	if err != nil {
		return nil, err
	}
	res.UserID, res.UserCreated = u.ID, true
	return res, nil
}
