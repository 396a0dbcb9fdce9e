package store

import (
	"fmt"
	"strconv"
)

// Dialect covers the few places where fedask's own statements differ between
// MySQL and PostgreSQL.
type Dialect struct {
	Name string
}

var (
	MySQL    = Dialect{Name: "mysql"}
	Postgres = Dialect{Name: "postgres"}
)

func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "", DriverMySQL:
		return MySQL, nil
	case DriverPgx, "postgres":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("no dialect for driver %q", driver)
	}
}

// Placeholder returns the n-th (1-based) bind parameter marker.
func (d Dialect) Placeholder(n int) string {
	if d.Name == Postgres.Name {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}
