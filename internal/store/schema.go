package store

import (
	"context"
	"fmt"
)

// migrations is the ordered list of idempotent DDL statements. Each entry is
// applied inside its own transaction; CREATE TABLE/INDEX/TRIGGER IF NOT
// EXISTS keeps re-application a no-op, matching the teacher's migration
// layout of one file per logical change, inlined here as string literals.
var migrations = []string{
	schemaCore,
	schemaFTS,
	schemaMetadata,
}

const schemaCore = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	org_id TEXT NOT NULL,
	status TEXT NOT NULL,
	started_at TEXT NOT NULL,
	ended_at TEXT,
	summary TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_org_created ON sessions(org_id, created_at);

CREATE TABLE IF NOT EXISTS research (
	id TEXT PRIMARY KEY,
	org_id TEXT NOT NULL,
	session_id TEXT,
	title TEXT NOT NULL,
	description TEXT,
	status TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_research_org_created ON research(org_id, created_at);

CREATE TABLE IF NOT EXISTS findings (
	id TEXT PRIMARY KEY,
	org_id TEXT NOT NULL,
	session_id TEXT,
	research_id TEXT,
	content TEXT NOT NULL,
	source TEXT,
	confidence TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_findings_org_created ON findings(org_id, created_at);

CREATE TABLE IF NOT EXISTS hypotheses (
	id TEXT PRIMARY KEY,
	org_id TEXT NOT NULL,
	session_id TEXT,
	research_id TEXT,
	finding_id TEXT,
	content TEXT NOT NULL,
	status TEXT NOT NULL,
	reason TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_hypotheses_org_created ON hypotheses(org_id, created_at);

CREATE TABLE IF NOT EXISTS insights (
	id TEXT PRIMARY KEY,
	org_id TEXT NOT NULL,
	session_id TEXT,
	research_id TEXT,
	content TEXT NOT NULL,
	confidence TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_insights_org_created ON insights(org_id, created_at);

CREATE TABLE IF NOT EXISTS issues (
	id TEXT PRIMARY KEY,
	org_id TEXT NOT NULL,
	session_id TEXT,
	parent_id TEXT,
	title TEXT NOT NULL,
	description TEXT,
	type TEXT NOT NULL,
	status TEXT NOT NULL,
	priority INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_issues_org_created ON issues(org_id, created_at);

CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	org_id TEXT NOT NULL,
	session_id TEXT,
	issue_id TEXT,
	research_id TEXT,
	title TEXT NOT NULL,
	description TEXT,
	status TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_org_created ON tasks(org_id, created_at);

CREATE TABLE IF NOT EXISTS impl_logs (
	id TEXT PRIMARY KEY,
	org_id TEXT NOT NULL,
	session_id TEXT,
	task_id TEXT NOT NULL,
	file_path TEXT NOT NULL,
	line_start INTEGER,
	line_end INTEGER,
	note TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_impl_logs_org_created ON impl_logs(org_id, created_at);

CREATE TABLE IF NOT EXISTS compats (
	id TEXT PRIMARY KEY,
	org_id TEXT NOT NULL,
	session_id TEXT,
	package_a TEXT NOT NULL,
	package_b TEXT NOT NULL,
	status TEXT NOT NULL,
	note TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_compats_org_created ON compats(org_id, created_at);

CREATE TABLE IF NOT EXISTS studies (
	id TEXT PRIMARY KEY,
	org_id TEXT NOT NULL,
	session_id TEXT,
	title TEXT NOT NULL,
	methodology TEXT NOT NULL,
	status TEXT NOT NULL,
	summary TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_studies_org_created ON studies(org_id, created_at);

CREATE TABLE IF NOT EXISTS study_assumptions (
	id TEXT PRIMARY KEY,
	org_id TEXT NOT NULL,
	study_id TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_study_assumptions_study ON study_assumptions(study_id);

CREATE TABLE IF NOT EXISTS study_test_results (
	id TEXT PRIMARY KEY,
	org_id TEXT NOT NULL,
	study_id TEXT NOT NULL,
	description TEXT NOT NULL,
	outcome TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_study_test_results_study ON study_test_results(study_id);

CREATE TABLE IF NOT EXISTS decisions (
	id TEXT PRIMARY KEY,
	org_id TEXT NOT NULL,
	session_id TEXT,
	title TEXT NOT NULL,
	rationale TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decisions_org_created ON decisions(org_id, created_at);

CREATE TABLE IF NOT EXISTS entity_links (
	id TEXT PRIMARY KEY,
	org_id TEXT NOT NULL,
	source_type TEXT NOT NULL,
	source_id TEXT NOT NULL,
	target_type TEXT NOT NULL,
	target_id TEXT NOT NULL,
	relation TEXT NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE(source_type, source_id, target_type, target_id, relation)
);
CREATE INDEX IF NOT EXISTS idx_entity_links_source ON entity_links(source_type, source_id);
CREATE INDEX IF NOT EXISTS idx_entity_links_target ON entity_links(target_type, target_id);

CREATE TABLE IF NOT EXISTS audit_entries (
	id TEXT PRIMARY KEY,
	org_id TEXT NOT NULL,
	session_id TEXT,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	action TEXT NOT NULL,
	detail TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_entries_entity ON audit_entries(entity_type, entity_id);
CREATE INDEX IF NOT EXISTS idx_audit_entries_org_created ON audit_entries(org_id, created_at);

CREATE TABLE IF NOT EXISTS finding_tags (
	finding_id TEXT NOT NULL,
	tag TEXT NOT NULL,
	PRIMARY KEY (finding_id, tag)
);
`

const schemaFTS = `
CREATE VIRTUAL TABLE IF NOT EXISTS findings_fts USING fts5(
	content, content='findings', content_rowid='rowid', tokenize='porter unicode61'
);
CREATE TRIGGER IF NOT EXISTS findings_ai AFTER INSERT ON findings BEGIN
	INSERT INTO findings_fts(rowid, content) VALUES (new.rowid, new.content);
END;
CREATE TRIGGER IF NOT EXISTS findings_ad AFTER DELETE ON findings BEGIN
	INSERT INTO findings_fts(findings_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
END;
CREATE TRIGGER IF NOT EXISTS findings_au AFTER UPDATE ON findings BEGIN
	INSERT INTO findings_fts(findings_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
	INSERT INTO findings_fts(rowid, content) VALUES (new.rowid, new.content);
END;

CREATE VIRTUAL TABLE IF NOT EXISTS hypotheses_fts USING fts5(
	content, content='hypotheses', content_rowid='rowid', tokenize='porter unicode61'
);
CREATE TRIGGER IF NOT EXISTS hypotheses_ai AFTER INSERT ON hypotheses BEGIN
	INSERT INTO hypotheses_fts(rowid, content) VALUES (new.rowid, new.content);
END;
CREATE TRIGGER IF NOT EXISTS hypotheses_ad AFTER DELETE ON hypotheses BEGIN
	INSERT INTO hypotheses_fts(hypotheses_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
END;
CREATE TRIGGER IF NOT EXISTS hypotheses_au AFTER UPDATE ON hypotheses BEGIN
	INSERT INTO hypotheses_fts(hypotheses_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
	INSERT INTO hypotheses_fts(rowid, content) VALUES (new.rowid, new.content);
END;

CREATE VIRTUAL TABLE IF NOT EXISTS issues_fts USING fts5(
	title, description, content='issues', content_rowid='rowid', tokenize='porter unicode61'
);
CREATE TRIGGER IF NOT EXISTS issues_ai AFTER INSERT ON issues BEGIN
	INSERT INTO issues_fts(rowid, title, description) VALUES (new.rowid, new.title, new.description);
END;
CREATE TRIGGER IF NOT EXISTS issues_ad AFTER DELETE ON issues BEGIN
	INSERT INTO issues_fts(issues_fts, rowid, title, description) VALUES ('delete', old.rowid, old.title, old.description);
END;
CREATE TRIGGER IF NOT EXISTS issues_au AFTER UPDATE ON issues BEGIN
	INSERT INTO issues_fts(issues_fts, rowid, title, description) VALUES ('delete', old.rowid, old.title, old.description);
	INSERT INTO issues_fts(rowid, title, description) VALUES (new.rowid, new.title, new.description);
END;

CREATE VIRTUAL TABLE IF NOT EXISTS studies_fts USING fts5(
	title, summary, content='studies', content_rowid='rowid', tokenize='porter unicode61'
);
CREATE TRIGGER IF NOT EXISTS studies_ai AFTER INSERT ON studies BEGIN
	INSERT INTO studies_fts(rowid, title, summary) VALUES (new.rowid, new.title, new.summary);
END;
CREATE TRIGGER IF NOT EXISTS studies_ad AFTER DELETE ON studies BEGIN
	INSERT INTO studies_fts(studies_fts, rowid, title, summary) VALUES ('delete', old.rowid, old.title, old.summary);
END;
CREATE TRIGGER IF NOT EXISTS studies_au AFTER UPDATE ON studies BEGIN
	INSERT INTO studies_fts(studies_fts, rowid, title, summary) VALUES ('delete', old.rowid, old.title, old.summary);
	INSERT INTO studies_fts(rowid, title, summary) VALUES (new.rowid, new.title, new.summary);
END;
`

const schemaMetadata = `
CREATE TABLE IF NOT EXISTS metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// migrate applies every migration statement block in order. Each block may
// contain multiple semicolon-separated statements; modernc.org/sqlite's
// ExecContext accepts multi-statement strings as a single call.
func (s *Store) migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("store: migration %d: %w", i, err)
		}
	}
	return nil
}
