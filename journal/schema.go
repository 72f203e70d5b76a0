package journal

const Schema = `
CREATE TABLE IF NOT EXISTS mirror_actions (
	id TEXT PRIMARY KEY,
	ticket TEXT NOT NULL,
	symbol TEXT NOT NULL,
	expiration TEXT NOT NULL,
	strike REAL NOT NULL,
	option_type TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	side TEXT NOT NULL,
	effect TEXT NOT NULL,
	order_id TEXT NOT NULL,
	limit_price REAL NOT NULL,
	outcome TEXT NOT NULL,
	reason TEXT NOT NULL,
	time DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_mirror_actions_ticket ON mirror_actions(ticket);
CREATE INDEX IF NOT EXISTS idx_mirror_actions_time ON mirror_actions(time);
`
