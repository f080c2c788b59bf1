package persistence

// Row is the scanning surface shared by pgx.Row and pgx.Rows.
type Row interface {
	Scan(dest ...any) error
}

// Binding supplies the SQL surface for one entity type: where it lives, how
// to read it back, and how to render each staged mutation. Statement builders
// are invoked at flush time, after audit stamping, so the stamped timestamps
// are what reaches the store.
type Binding[T Auditable] struct {
	Table   string
	Columns string
	Scan    func(row Row) (T, error)
	Insert  func(e T) (sql string, args []any)
	Update  func(e T) (sql string, args []any)
	Delete  func(e T) (sql string, args []any)
}

// Predicate is a WHERE fragment with positional args. The Get contract
// requires the predicate to be unique (a key); List accepts any predicate.
type Predicate struct {
	Where string
	Args  []any
}

func Where(expr string, args ...any) Predicate {
	return Predicate{Where: expr, Args: args}
}

type Order struct {
	By   string
	Desc bool
}
