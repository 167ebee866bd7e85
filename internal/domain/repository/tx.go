package repository

// Repositories agrupa los puertos que una operación usa dentro de una misma
// transacción del almacén (o fuera de ella, sobre el pool).
type Repositories struct {
	Products  ProductRepository
	Branches  BranchRepository
	Customers CustomerRepository
	Stock     StockRepository
	Logs      InventoryLogRepository
	Sales     SaleRepository
	Layaways  LayawayRepository
}

// Tx es una transacción en curso. Los hooks de AfterCommit se ejecutan solo si
// la transacción se confirmó, en el orden en que se registraron.
type Tx struct {
	Repositories
	afterCommit []func()
}

// NewTx envuelve repositorios ya atados a una transacción.
func NewTx(repos Repositories) *Tx {
	return &Tx{Repositories: repos}
}

// AfterCommit registra fn para después de un commit exitoso.
func (t *Tx) AfterCommit(fn func()) {
	t.afterCommit = append(t.afterCommit, fn)
}

// Committed ejecuta los hooks registrados. Lo llaman los TxRunner tras el commit.
func (t *Tx) Committed() {
	hooks := t.afterCommit
	t.afterCommit = nil
	for _, fn := range hooks {
		fn()
	}
}
