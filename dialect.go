package sqlkit

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect identifies the SQL flavour a backend speaks. It is fixed at
// connection time and drives placeholder style, RETURNING support and the
// capability table.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
)

func (d Dialect) String() string {
	return string(d)
}

// DialectFromURL selects a dialect from a connection URL scheme.
// Recognized schemes: sqlite (sqlite3), mysql, postgres (postgresql).
// Any other scheme is a configuration error, reported before any
// connection attempt.
func DialectFromURL(url string) (Dialect, error) {
	scheme, _, ok := strings.Cut(url, ":")
	if !ok || scheme == "" {
		return "", &Error{
			Code:    CodeConfig,
			Message: "connection URL has no scheme",
			Op:      "DialectFromURL",
		}
	}

	switch strings.ToLower(scheme) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "mysql":
		return MySQL, nil
	case "postgres", "postgresql":
		return Postgres, nil
	}

	return "", &Error{
		Code:    CodeConfig,
		Message: fmt.Sprintf("unsupported database URL scheme %q", scheme),
		Op:      "DialectFromURL",
	}
}

// Placeholder returns the parameter token for the n-th parameter (1-based).
// SQLite and MySQL use positional "?", PostgreSQL uses numbered "$n".
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// QuoteIdent quotes an identifier for DDL emission.
func (d Dialect) QuoteIdent(name string) string {
	if d == MySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Feature is a dialect capability that callers can probe before issuing
// dialect-specific SQL.
type Feature string

const (
	FeatureTransactions    Feature = "transactions"
	FeatureSavepoints      Feature = "savepoints"
	FeatureReturning       Feature = "returning"
	FeatureUpsert          Feature = "upsert"
	FeatureCTE             Feature = "cte"
	FeatureWindowFunctions Feature = "window_functions"
)

// dialectFeatures is the static capability table. MySQL entries assume the
// 8.0 baseline: it has CTEs and window functions but no RETURNING clause,
// and uses ON DUPLICATE KEY instead of ON CONFLICT.
var dialectFeatures = map[Dialect]map[Feature]bool{
	SQLite: {
		FeatureTransactions:    true,
		FeatureSavepoints:      true,
		FeatureReturning:       true,
		FeatureUpsert:          true,
		FeatureCTE:             true,
		FeatureWindowFunctions: true,
	},
	MySQL: {
		FeatureTransactions:    true,
		FeatureSavepoints:      true,
		FeatureReturning:       false,
		FeatureUpsert:          false,
		FeatureCTE:             true,
		FeatureWindowFunctions: true,
	},
	Postgres: {
		FeatureTransactions:    true,
		FeatureSavepoints:      true,
		FeatureReturning:       true,
		FeatureUpsert:          true,
		FeatureCTE:             true,
		FeatureWindowFunctions: true,
	},
}

// Supports reports whether the dialect implements the given feature.
func (d Dialect) Supports(f Feature) bool {
	return dialectFeatures[d][f]
}

// Features returns a copy of the dialect's capability table.
func (d Dialect) Features() map[Feature]bool {
	features := dialectFeatures[d]
	out := make(map[Feature]bool, len(features))
	for f, ok := range features {
		out[f] = ok
	}
	return out
}
