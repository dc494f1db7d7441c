package sink

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS messages (
	id            TEXT PRIMARY KEY,
	importer      TEXT NOT NULL,
	source_type   TEXT NOT NULL,
	header        TEXT NOT NULL,
	content       TEXT NOT NULL,
	author        TEXT NOT NULL,
	language      TEXT NOT NULL,
	origin_index  TEXT NOT NULL,
	copyright     TEXT NOT NULL,
	directories   TEXT NOT NULL,
	sender        TEXT NOT NULL,
	received_at   DATETIME NOT NULL,
	imported_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_importer ON messages(importer);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
