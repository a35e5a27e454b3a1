package db

// score_records_triple is the authoritative guard behind the at-most-one
// approved record per (student, category, academic year) rule.
const schemaSQLite = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL,
  student_number TEXT UNIQUE,
  class_name TEXT NOT NULL DEFAULT '',
  college TEXT NOT NULL DEFAULT '',
  grade TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS academic_years (
  name TEXT PRIMARY KEY,
  is_current INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS applications (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL REFERENCES users(id),
  category_id INTEGER NOT NULL,
  description TEXT NOT NULL,
  score INTEGER NOT NULL,
  evidence TEXT NOT NULL,
  status TEXT NOT NULL,
  academic_year TEXT NOT NULL DEFAULT '',
  reviewer_id TEXT,
  review_comment TEXT,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL,
  reviewed_at INTEGER
);
CREATE INDEX IF NOT EXISTS applications_student ON applications(student_id, created_at);

CREATE TABLE IF NOT EXISTS group_applications (
  id TEXT PRIMARY KEY,
  teacher_id TEXT NOT NULL REFERENCES users(id),
  category_id INTEGER NOT NULL,
  description TEXT NOT NULL,
  evidence TEXT NOT NULL,
  status TEXT NOT NULL,
  academic_year TEXT NOT NULL DEFAULT '',
  reviewer_id TEXT,
  review_comment TEXT,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL,
  reviewed_at INTEGER
);
CREATE INDEX IF NOT EXISTS group_applications_teacher ON group_applications(teacher_id, created_at);

CREATE TABLE IF NOT EXISTS group_members (
  group_id TEXT NOT NULL REFERENCES group_applications(id) ON DELETE CASCADE,
  student_id TEXT NOT NULL REFERENCES users(id),
  score INTEGER NOT NULL,
  position INTEGER NOT NULL,
  PRIMARY KEY (group_id, student_id)
);

CREATE TABLE IF NOT EXISTS score_records (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL REFERENCES users(id),
  category_id INTEGER NOT NULL,
  score INTEGER NOT NULL,
  source TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  academic_year TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  application_id TEXT,
  group_application_id TEXT,
  CHECK (application_id IS NULL OR group_application_id IS NULL)
);
CREATE UNIQUE INDEX IF NOT EXISTS score_records_triple ON score_records(student_id, category_id, academic_year);

CREATE TABLE IF NOT EXISTS event_log (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  actor TEXT NOT NULL DEFAULT '',
  data TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL,
  student_number TEXT UNIQUE,
  class_name TEXT NOT NULL DEFAULT '',
  college TEXT NOT NULL DEFAULT '',
  grade TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS academic_years (
  name TEXT PRIMARY KEY,
  is_current INTEGER NOT NULL DEFAULT 0,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS applications (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL REFERENCES users(id),
  category_id INTEGER NOT NULL,
  description TEXT NOT NULL,
  score INTEGER NOT NULL,
  evidence TEXT NOT NULL,
  status TEXT NOT NULL,
  academic_year TEXT NOT NULL DEFAULT '',
  reviewer_id TEXT,
  review_comment TEXT,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL,
  reviewed_at BIGINT
);
CREATE INDEX IF NOT EXISTS applications_student ON applications(student_id, created_at);

CREATE TABLE IF NOT EXISTS group_applications (
  id TEXT PRIMARY KEY,
  teacher_id TEXT NOT NULL REFERENCES users(id),
  category_id INTEGER NOT NULL,
  description TEXT NOT NULL,
  evidence TEXT NOT NULL,
  status TEXT NOT NULL,
  academic_year TEXT NOT NULL DEFAULT '',
  reviewer_id TEXT,
  review_comment TEXT,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL,
  reviewed_at BIGINT
);
CREATE INDEX IF NOT EXISTS group_applications_teacher ON group_applications(teacher_id, created_at);

CREATE TABLE IF NOT EXISTS group_members (
  group_id TEXT NOT NULL REFERENCES group_applications(id) ON DELETE CASCADE,
  student_id TEXT NOT NULL REFERENCES users(id),
  score INTEGER NOT NULL,
  position INTEGER NOT NULL,
  PRIMARY KEY (group_id, student_id)
);

CREATE TABLE IF NOT EXISTS score_records (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL REFERENCES users(id),
  category_id INTEGER NOT NULL,
  score INTEGER NOT NULL,
  source TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  academic_year TEXT NOT NULL,
  created_at BIGINT NOT NULL,
  application_id TEXT,
  group_application_id TEXT,
  CHECK (application_id IS NULL OR group_application_id IS NULL)
);
CREATE UNIQUE INDEX IF NOT EXISTS score_records_triple ON score_records(student_id, category_id, academic_year);

CREATE TABLE IF NOT EXISTS event_log (
  seq BIGSERIAL PRIMARY KEY,
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  actor TEXT NOT NULL DEFAULT '',
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
