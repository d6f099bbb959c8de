// Package testdb provides helpers for tests that run against a real
// PostgreSQL database.
//
// Tests using it are skipped unless TASKPILOT_TEST_DB_URL or DATABASE_URL is
// set. The schema is migrated once per process from the embedded migrations,
// and each test body runs inside a transaction that is rolled back when it
// returns, so tests can call t.Parallel() without seeing each other's rows:
//
//	func TestSomething(t *testing.T) {
//	    db := testdb.Open(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        store := postgres.NewPostgresTaskStore(tx, nil)
//	        ...
//	    })
//	}
package testdb
