package storage

// Schema creates the knowledge store tables. Tables created by older
// versions are left as they are and brought up to date by migrations.
const Schema = `
CREATE TABLE IF NOT EXISTS categories (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL UNIQUE,
    parent_id   INTEGER,
    type        TEXT NOT NULL DEFAULT 'note'
                CHECK(type IN ('note', 'task', 'both')),
    created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS notes (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    title       TEXT NOT NULL,
    content     TEXT,
    tags        TEXT DEFAULT '[]',
    category_id INTEGER REFERENCES categories(id),
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    title          TEXT NOT NULL,
    description    TEXT,
    status         TEXT DEFAULT 'pending',
    priority       TEXT DEFAULT 'medium',
    due_date       TEXT,
    tags           TEXT DEFAULT '[]',
    category_id    INTEGER REFERENCES categories(id),
    linked_note_id INTEGER REFERENCES notes(id),
    created_at     TEXT NOT NULL,
    updated_at     TEXT,
    completed_at   TEXT
);

CREATE TABLE IF NOT EXISTS note_links (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    source_note_id INTEGER NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
    target_note_id INTEGER NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
    link_type      TEXT DEFAULT 'reference',
    created_at     TEXT NOT NULL,
    UNIQUE(source_note_id, target_note_id)
);
`

// Indexes must run after migrations since they cover migrated columns.
const Indexes = `
CREATE INDEX IF NOT EXISTS idx_notes_category ON notes(category_id);
CREATE INDEX IF NOT EXISTS idx_notes_title ON notes(title);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_category ON tasks(category_id);
CREATE INDEX IF NOT EXISTS idx_tasks_linked_note ON tasks(linked_note_id);
CREATE INDEX IF NOT EXISTS idx_note_links_target ON note_links(target_note_id);
`

// dsnPragmas configures each connection: WAL, busy timeout and foreign keys.
const dsnPragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)"
