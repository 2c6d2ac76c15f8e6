package journal

// Schema is applied on Open. Money columns are decimal strings.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	start_date   TEXT NOT NULL,
	end_date     TEXT NOT NULL,
	final_value  TEXT NOT NULL,
	total_return REAL NOT NULL,
	sharpe       REAL NOT NULL,
	max_drawdown REAL NOT NULL,
	config       TEXT NOT NULL,
	report       TEXT NOT NULL,
	diagnostics  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	run_id          TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	seq             INTEGER NOT NULL,
	date            TEXT NOT NULL,
	symbol          TEXT NOT NULL,
	action          TEXT NOT NULL,
	price           TEXT NOT NULL,
	reference_price TEXT NOT NULL,
	shares          TEXT NOT NULL,
	gross_amount    TEXT NOT NULL,
	commission      TEXT NOT NULL,
	slippage_cost   TEXT NOT NULL,
	net_amount      TEXT NOT NULL,
	reason          TEXT NOT NULL,
	partial         INTEGER NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS daily_records (
	run_id            TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	date              TEXT NOT NULL,
	portfolio_value   TEXT NOT NULL,
	cash              TEXT NOT NULL,
	positions_value   TEXT NOT NULL,
	daily_return      REAL NOT NULL,
	cumulative_return REAL NOT NULL,
	holdings          INTEGER NOT NULL,
	PRIMARY KEY (run_id, date)
);
`
