package http

import (
	"context"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/pos-ledger/internal/application/auth"
	"github.com/jhoicas/pos-ledger/internal/application/inventory"
	"github.com/jhoicas/pos-ledger/internal/application/sales"
	"github.com/jhoicas/pos-ledger/internal/application/usecase"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// SwaggerFile es la ruta del documento OpenAPI generado con swag.
const SwaggerFile = "./docs/swagger.json"

// Pinger verifica el almacén para /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC        *auth.AuthUseCase
	ProductUC     *usecase.ProductUseCase
	BranchUC      *usecase.BranchUseCase
	CustomerUC    *usecase.CustomerUseCase
	UserUC        *usecase.UserUseCase
	ReportUC      *usecase.ReportUseCase
	Inventory     *inventory.Engine
	Replenishment *inventory.ReplenishmentUseCase
	Sales         *sales.Engine
	Branches      branchChecker
	Store         Pinger
	JWTSecret     string
	RateLimit     string // vacío desactiva el límite
	ServiceName   string
}

// NewApp crea la aplicación Fiber con el manejador de errores y recover.
func NewApp(name string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      name,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: ErrorHandler,
	})
	app.Use(recover.New())

	// Swagger UI en /docs solo si se generó el documento (swag init).
	if _, err := os.Stat(SwaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: SwaggerFile,
			Path:     "docs",
			Title:    "POS Ledger API",
		}))
	}
	return app
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) error {
	app.Get("/health", func(c *fiber.Ctx) error {
		if deps.Store != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := deps.Store.Ping(ctx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "down", "service": deps.ServiceName})
			}
		}
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})

	api := app.Group("/api")
	if deps.RateLimit != "" {
		limit, err := RateLimit(deps.RateLimit)
		if err != nil {
			return err
		}
		api.Use(limit)
	}

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC)
	api.Post("/auth/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	if deps.Branches != nil {
		protected.Use(RequireActiveBranch(deps.Branches))
	}
	managers := RequireRole(entity.RoleAdmin, entity.RoleSupervisor)
	admins := RequireRole(entity.RoleAdmin)

	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Get("/", productHandler.List)
	products.Get("/lookup/:code", productHandler.Lookup)
	products.Get("/:id", productHandler.GetByID)
	products.Post("/", managers, productHandler.Create)
	products.Put("/:id", managers, productHandler.Update)
	products.Delete("/:id", managers, productHandler.Deactivate)

	branches := protected.Group("/branches")
	branchHandler := NewBranchHandler(deps.BranchUC)
	branches.Get("/", branchHandler.List)
	branches.Get("/:id", branchHandler.GetByID)
	branches.Post("/", admins, branchHandler.Create)
	branches.Put("/:id/tax-rate", admins, branchHandler.SetTaxRate)
	branches.Delete("/:id", admins, branchHandler.Deactivate)

	customers := protected.Group("/customers")
	customerHandler := NewCustomerHandler(deps.CustomerUC)
	customers.Post("/", customerHandler.Create)
	customers.Get("/", customerHandler.List)
	customers.Get("/:id", customerHandler.GetByID)
	customers.Put("/:id", customerHandler.Update)

	users := protected.Group("/users", admins)
	userHandler := NewUserHandler(deps.UserUC)
	users.Post("/", userHandler.Create)
	users.Get("/", userHandler.List)
	users.Get("/:id", userHandler.GetByID)

	inv := protected.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Inventory, deps.Replenishment)
	inv.Get("/available", inventoryHandler.Available)
	inv.Get("/stock", inventoryHandler.Stock)
	inv.Get("/logs", inventoryHandler.Logs)
	inv.Get("/reconcile", inventoryHandler.Reconcile)
	inv.Get("/low-stock", inventoryHandler.LowStock)
	inv.Post("/adjust", managers, inventoryHandler.Adjust)
	inv.Post("/introduce", managers, inventoryHandler.Introduce)
	inv.Put("/thresholds", managers, inventoryHandler.Thresholds)
	inv.Post("/transfer", managers, inventoryHandler.Transfer)

	salesGroup := protected.Group("/sales")
	saleHandler := NewSaleHandler(deps.Sales)
	salesGroup.Post("/", saleHandler.Create)
	salesGroup.Get("/", saleHandler.List)
	salesGroup.Get("/:id", saleHandler.GetByID)

	layaways := protected.Group("/layaways")
	layawayHandler := NewLayawayHandler(deps.Sales)
	layaways.Post("/", layawayHandler.Create)
	layaways.Get("/", layawayHandler.List)
	layaways.Get("/:id", layawayHandler.GetByID)
	layaways.Post("/:id/payments", layawayHandler.AddPayment)
	layaways.Post("/:id/settle", layawayHandler.Settle)
	layaways.Post("/:id/cancel", layawayHandler.Cancel)

	reports := protected.Group("/reports", managers)
	reportHandler := NewReportHandler(deps.ReportUC)
	reports.Get("/sales-summary", reportHandler.SalesSummary)
	reports.Get("/margins", reportHandler.Margins)
	return nil
}
