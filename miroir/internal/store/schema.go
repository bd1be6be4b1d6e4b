package store

// Schema contains the complete DDL for the clone registry.
const Schema = `
-- Clones: one row per mirrored page, paired with an artifact on disk
CREATE TABLE IF NOT EXISTS clones (
    id           TEXT PRIMARY KEY,
    owner_id     TEXT NOT NULL,
    source_url   TEXT NOT NULL,
    artifact_ref TEXT NOT NULL,
    pixel_id     TEXT,
    status       TEXT NOT NULL DEFAULT 'active',
    view_count   INTEGER NOT NULL DEFAULT 0,
    created_at   INTEGER NOT NULL,
    last_updated INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_clones_owner ON clones(owner_id, status, created_at DESC);

-- Scripts injected into a clone, in insertion order
CREATE TABLE IF NOT EXISTS clone_scripts (
    id         TEXT PRIMARY KEY,
    clone_id   TEXT NOT NULL,
    content    TEXT NOT NULL,
    location   TEXT NOT NULL,
    position   INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (clone_id) REFERENCES clones(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_scripts_clone ON clone_scripts(clone_id, position);
`
