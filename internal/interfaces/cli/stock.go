package cli

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/application/inventory"
	"github.com/jhoicas/pos-ledger/internal/application/usecase"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

type stockOptions struct {
	*RootOptions
	product string // id, SKU o código de barras
	branch  string
}

// NewStockCommand crea "pos stock" con sus subcomandos.
func NewStockCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stock",
		Short: "Consulta y ajusta el stock de una sucursal",
	}
	cmd.AddCommand(newStockAvailableCommand(&stockOptions{RootOptions: rootOpts}))
	cmd.AddCommand(newStockAdjustCommand(&stockAdjustOptions{stockOptions: stockOptions{RootOptions: rootOpts}}))
	return cmd
}

func (o *stockOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.product, "product", "", "producto: id, SKU o código de barras (requerido)")
	cmd.Flags().StringVar(&o.branch, "branch", "", "id de sucursal (requerido)")
	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("branch")
}

// withApp arma la aplicación, resuelve el producto y ejecuta fn.
func (o *stockOptions) withApp(ctx context.Context, fn func(app *App, productID string) error) error {
	app, err := Bootstrap(ctx, o.cfg, o.log)
	if err != nil {
		return commandError("inicializar", err)
	}
	defer app.Close()

	productID, err := resolveProduct(ctx, app, o.product)
	if err != nil {
		return operationError("producto", err)
	}
	return fn(app, productID)
}

// resolveProduct acepta un id o, si no existe como id, un SKU o código de barras.
func resolveProduct(ctx context.Context, app *App, ref string) (string, error) {
	repos := app.Store.Repositories()
	p, err := repos.Products.GetByID(ctx, ref)
	if err != nil {
		return "", err
	}
	if p != nil {
		return p.ID, nil
	}
	found, err := usecase.NewProductUseCase(repos.Products).Lookup(ctx, ref)
	if err != nil {
		return "", err
	}
	return found.ID, nil
}

func newStockAvailableCommand(opts *stockOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "available",
		Short: "Muestra el disponible (stock - reservado)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return opts.withApp(ctx, func(app *App, productID string) error {
				n, err := app.Inventory.AvailableQuantity(ctx, productID, opts.branch)
				if err != nil {
					return operationError("disponible", err)
				}
				return opts.printer().success(fmt.Sprintf("%d", n), dto.AvailabilityResponse{
					ProductID: productID, BranchID: opts.branch, Available: n,
				})
			})
		},
	}
	opts.bind(cmd)
	return cmd
}

type stockAdjustOptions struct {
	stockOptions
	delta    int64
	reason   string
	actor    string
	unitCost string
}

func newStockAdjustCommand(opts *stockAdjustOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adjust",
		Short: "Ajusta el stock físico y lo registra en la bitácora",
		Example: `  pos stock adjust --product SKU-001 --branch <id> --delta 24 --reason receiving --unit-cost 12.50
  pos stock adjust --product SKU-001 --branch <id> --delta -2 --reason shrinkage`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ch := inventory.StockChange{
				BranchID: opts.branch,
				Quantity: opts.delta,
				Reason:   opts.reason,
				Actor:    opts.actor,
				RefType:  entity.RefTypeManual,
			}
			if opts.unitCost != "" {
				cost, err := decimal.NewFromString(opts.unitCost)
				if err != nil {
					return commandError("--unit-cost inválido", err)
				}
				ch.UnitCost = &cost
			}
			ctx := cmd.Context()
			return opts.withApp(ctx, func(app *App, productID string) error {
				ch.ProductID = productID
				s, err := app.Inventory.AdjustStock(ctx, ch)
				if err != nil {
					return operationError("ajuste", err)
				}
				return opts.printer().success(
					fmt.Sprintf("stock=%d reservado=%d disponible=%d", s.Stock, s.Reserved, s.Available()),
					dto.StockResponse{
						ProductID: s.ProductID, BranchID: s.BranchID,
						Stock: s.Stock, Reserved: s.Reserved, Available: s.Available(),
						MinStock: s.MinStock, MaxStock: s.MaxStock, UpdatedAt: s.UpdatedAt,
					},
				)
			})
		},
	}
	opts.bind(cmd)
	cmd.Flags().Int64Var(&opts.delta, "delta", 0, "cambio con signo (requerido)")
	cmd.Flags().StringVar(&opts.reason, "reason", entity.ReasonAdjustment, "motivo: receiving, shrinkage, count, return, adjustment")
	cmd.Flags().StringVar(&opts.actor, "actor", "cli", "quién registra el ajuste")
	cmd.Flags().StringVar(&opts.unitCost, "unit-cost", "", "costo unitario de la entrada (recalcula el costo promedio)")
	_ = cmd.MarkFlagRequired("delta")
	return cmd
}
