package pgstore

// schema is the reference DDL from the storage contract: tables hold
// client-facing metadata plus an opaque JSON blob for headers/rows;
// sync_events is the append-only log with a SERIAL primary key giving
// the monotonic, totally-ordered id the contract requires.
const schema = `
CREATE TABLE IF NOT EXISTS tables (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	version    BIGINT NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS sync_events (
	id         BIGSERIAL PRIMARY KEY,
	cursor     TEXT UNIQUE NOT NULL,
	client_id  TEXT NOT NULL,
	operation  JSONB NOT NULL,
	server_ts  TIMESTAMPTZ NOT NULL,
	applied    BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE INDEX IF NOT EXISTS idx_tables_updated_at ON tables (updated_at DESC);
`
