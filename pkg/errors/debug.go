package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// LogFields flattens err into structured log fields: the wrapped chain, the
// typed code when present and the Postgres diagnostics from either driver.
func LogFields(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}
	fields := map[string]any{"error": err.Error()}
	if typed := As(err); typed != nil {
		fields["error_code"] = typed.Code()
	}

	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T: %v", e, e))
	}
	fields["error_chain"] = chain

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		addPG(fields, pgxErr.Code, pgxErr.TableName, pgxErr.ConstraintName, pgxErr.Detail)
	case errors.As(err, &pqErr):
		addPG(fields, string(pqErr.Code), pqErr.Table, pqErr.Constraint, pqErr.Detail)
	}
	return fields
}

func addPG(fields map[string]any, code, table, constraint, detail string) {
	for k, v := range map[string]string{
		"pg_code":       code,
		"pg_table":      table,
		"pg_constraint": constraint,
		"pg_detail":     detail,
	} {
		if v != "" {
			fields[k] = v
		}
	}
}
