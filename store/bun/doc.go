// Package bunstore implements store.Store on PostgreSQL via the Bun ORM.
//
// Checkpoint state, attachment lists, timelines, and merge conflicts are
// stored as msgpack-encoded bytea columns; everything queried by the engine
// (IDs, statuses, stages, indexes) lives in plain columns. Checkpoint index
// assignment runs in a transaction holding a row lock on the owning run, so
// indexes stay strictly monotonic per run under concurrent appends.
//
//	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
//	db := bun.NewDB(sqldb, pgdialect.New())
//	st := bunstore.New(db)
//	if err := st.Migrate(ctx); err != nil { ... }
package bunstore
