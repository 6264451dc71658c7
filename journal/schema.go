package journal

// Decimals are stored as TEXT so they round-trip exactly.
const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	position_id TEXT NOT NULL,
	instrument TEXT NOT NULL,
	side TEXT NOT NULL,
	units INTEGER NOT NULL,
	entry_price TEXT NOT NULL,
	exit_price TEXT NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	realized_pl TEXT NOT NULL,
	reason TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
	order_id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	instrument TEXT NOT NULL,
	units INTEGER NOT NULL,
	side TEXT NOT NULL,
	order_type TEXT NOT NULL,
	status TEXT NOT NULL,
	broker_id TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS balances (
	time DATETIME NOT NULL,
	balance TEXT NOT NULL,
	unrealized_pl TEXT NOT NULL,
	open_positions INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_close_time ON trades(close_time);
CREATE INDEX IF NOT EXISTS idx_orders_time ON orders(time);
CREATE INDEX IF NOT EXISTS idx_balances_time ON balances(time);
`
