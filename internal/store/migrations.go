package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS briefings (
	id             TEXT PRIMARY KEY,
	email_summary  TEXT NOT NULL DEFAULT '',
	source_backend TEXT NOT NULL,
	generated_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	briefing_id TEXT NOT NULL REFERENCES briefings(id) ON DELETE CASCADE,
	task        TEXT NOT NULL,
	priority    TEXT NOT NULL DEFAULT 'low' CHECK(priority IN ('high', 'medium', 'low')),
	source      TEXT NOT NULL,
	completed   INTEGER NOT NULL DEFAULT 0 CHECK(completed IN (0, 1)),
	position    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_briefings_generated_at ON briefings(generated_at);
CREATE INDEX IF NOT EXISTS idx_tasks_briefing_id ON tasks(briefing_id);
CREATE INDEX IF NOT EXISTS idx_tasks_completed ON tasks(completed);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
