// Package checks provides reusable health check implementations for common
// infrastructure dependencies.
//
// Each subpackage provides a Config struct and New() factory function that
// returns a health check function compatible with health.CheckFunc:
//
//	func(context.Context) error
//
// Example usage with the health package:
//
//	import (
//	    "github.com/petabytecl/jobu/health"
//	    checksql "github.com/petabytecl/jobu/health/checks/sql"
//	)
//
//	func main() {
//	    db, _ := sql.Open("postgres", dsn)
//
//	    registrar.AddReadinessCheck("database", checksql.New(checksql.Config{
//	        DB: db,
//	    }))
//	}
//
// Available check packages:
//   - sql: SQL database connectivity (database/sql)
//   - pgx: PostgreSQL connectivity (pgx/v5 pool)
package checks
