package db

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"modernc.org/sqlite"
)

// SQLite's lower() only folds ASCII, so search on SQLite goes through fold().
func init() {
	sqlite.MustRegisterDeterministicScalarFunction("fold", 1, foldFunc)
}

func foldFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return foldText(v), nil
	case []byte:
		return foldText(string(v)), nil
	default:
		return v, nil
	}
}

// foldText is the caseless form of s used to compare search text.
func foldText(s string) string {
	// a Caser keeps state, so each call gets its own
	return cases.Fold().String(norm.NFC.String(s))
}

// foldExpr wraps a column so it compares caselessly on driver, and
// foldArg prepares the matching argument.
func foldExpr(driver, col string) string {
	if driver == Postgres {
		return fmt.Sprintf("lower(%s)", col)
	}
	return fmt.Sprintf("fold(%s)", col)
}

func foldArg(driver, s string) string {
	if driver == Postgres {
		return strings.ToLower(s)
	}
	return foldText(s)
}
