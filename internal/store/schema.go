package store

// Schema v1 - initial database schema for the AudioRecord registry.
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- The process-wide registry of indexed audio files (AudioRecord, spec SS3).
CREATE TABLE IF NOT EXISTS records (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  path TEXT UNIQUE NOT NULL,
  content_hash TEXT,
  filename TEXT NOT NULL,
  format TEXT,
  file_size INTEGER NOT NULL,
  duration_s REAL,
  sample_rate_hz INTEGER,
  bit_depth INTEGER,
  channels INTEGER,
  bitrate_kbps INTEGER,
  title TEXT,
  artist TEXT,
  album TEXT,
  genre TEXT,
  year INTEGER,
  track_number INTEGER,
  comment TEXT,
  description TEXT,
  translation_status INTEGER NOT NULL DEFAULT 0,
  translated_name TEXT,
  mtime_unix INTEGER NOT NULL,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_records_content_hash ON records(content_hash) WHERE content_hash IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_records_filename ON records(filename);
CREATE INDEX IF NOT EXISTS idx_records_format ON records(format);
CREATE INDEX IF NOT EXISTS idx_records_duration ON records(duration_s);
CREATE INDEX IF NOT EXISTS idx_records_sample_rate ON records(sample_rate_hz);
CREATE INDEX IF NOT EXISTS idx_records_channels ON records(channels);
CREATE INDEX IF NOT EXISTS idx_records_file_size ON records(file_size);

-- Tags are stored one-per-row, joined by record_id (spec SS6).
CREATE TABLE IF NOT EXISTS record_tags (
  record_id INTEGER NOT NULL REFERENCES records(id) ON DELETE CASCADE,
  tag TEXT NOT NULL,
  PRIMARY KEY (record_id, tag)
);

CREATE INDEX IF NOT EXISTS idx_record_tags_tag ON record_tags(tag);

-- Embeddings belong to a separate table addressable by record_id (spec SS3 Ownership).
CREATE TABLE IF NOT EXISTS embeddings (
  record_id INTEGER PRIMARY KEY REFERENCES records(id) ON DELETE CASCADE,
  dim INTEGER NOT NULL,
  vector BLOB NOT NULL,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Small set of export projects; file membership is by record_id indirection
-- only (spec SS9 "cyclic references"), never a back-pointer on records.
CREATE TABLE IF NOT EXISTS projects (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT UNIQUE NOT NULL,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS project_members (
  project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
  record_id INTEGER NOT NULL REFERENCES records(id) ON DELETE CASCADE,
  PRIMARY KEY (project_id, record_id)
);
`
