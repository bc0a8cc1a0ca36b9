package journal

const Schema = `
CREATE TABLE IF NOT EXISTS decisions (
	id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	regime TEXT NOT NULL,
	bias TEXT NOT NULL,
	can_trade INTEGER NOT NULL,
	reason TEXT NOT NULL,
	price REAL NOT NULL,
	spread REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	ticket TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	action TEXT NOT NULL,
	volume REAL NOT NULL,
	price REAL NOT NULL,
	stop_loss REAL NOT NULL,
	take_profit REAL NOT NULL,
	risk_pct REAL NOT NULL,
	realized_pl REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_time ON decisions(time);
CREATE INDEX IF NOT EXISTS idx_trades_ticket ON trades(ticket);
`
