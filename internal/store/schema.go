package store

// SchemaVersion is the current schema version. Bump when adding a migration.
const SchemaVersion = 2

const schema = `
CREATE TABLE IF NOT EXISTS schema_info (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS progress (
	roadmap_id   TEXT NOT NULL,
	node_id      TEXT NOT NULL,
	completed_at DATETIME NOT NULL,
	PRIMARY KEY (roadmap_id, node_id)
);

CREATE TABLE IF NOT EXISTS notes (
	roadmap_id TEXT NOT NULL,
	node_id    TEXT NOT NULL,
	body       TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (roadmap_id, node_id)
);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS playlist (
	position   INTEGER PRIMARY KEY AUTOINCREMENT,
	roadmap_id TEXT NOT NULL,
	label      TEXT NOT NULL,
	url        TEXT NOT NULL DEFAULT ''
);

-- Single-row sync markers for the progress/notes/settings payload.
CREATE TABLE IF NOT EXISTS sync_state (
	id                  INTEGER PRIMARY KEY CHECK (id = 1),
	local_last_modified DATETIME,
	last_synced_at      DATETIME,
	last_sync_error     TEXT NOT NULL DEFAULT ''
);
INSERT OR IGNORE INTO sync_state (id) VALUES (1);

CREATE TABLE IF NOT EXISTS cards (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	summary    JSON NOT NULL DEFAULT '[]',
	tags       JSON NOT NULL DEFAULT '[]',
	color      TEXT NOT NULL DEFAULT '',
	pos_x      REAL NOT NULL DEFAULT 0,
	pos_y      REAL NOT NULL DEFAULT 0,
	pos_z      REAL NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

-- Outbound links owned by their source card. target_id is not a foreign
-- key: dangling links are tolerated and filtered at read time.
CREATE TABLE IF NOT EXISTS card_links (
	card_id   TEXT NOT NULL,
	target_id TEXT NOT NULL,
	type      TEXT NOT NULL DEFAULT 'related',
	label     TEXT NOT NULL DEFAULT '',
	is_hidden INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (card_id, target_id, type)
);
CREATE INDEX IF NOT EXISTS idx_card_links_card ON card_links(card_id);

-- Markdown bodies, stored apart from card metadata.
CREATE TABLE IF NOT EXISTS card_contents (
	card_id TEXT PRIMARY KEY,
	body    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

-- Single-row sync markers for the card graph, tracked independently of
-- the progress payload.
CREATE TABLE IF NOT EXISTS card_state (
	id                  INTEGER PRIMARY KEY CHECK (id = 1),
	local_last_modified DATETIME,
	last_synced_at      DATETIME
);
INSERT OR IGNORE INTO card_state (id) VALUES (1);
`

// Migration is a single schema migration step.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations lists schema changes applied in order by RunMigrations.
var Migrations = []Migration{
	{
		Version:     2,
		Description: "add playlist table",
		SQL: `CREATE TABLE IF NOT EXISTS playlist (
			position   INTEGER PRIMARY KEY AUTOINCREMENT,
			roadmap_id TEXT NOT NULL,
			label      TEXT NOT NULL,
			url        TEXT NOT NULL DEFAULT ''
		)`,
	},
}
