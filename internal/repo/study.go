package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/zenith-dev/zenith/internal/enum"
	"github.com/zenith-dev/zenith/internal/ids"
	"github.com/zenith-dev/zenith/internal/links"
	"github.com/zenith-dev/zenith/internal/trail"
	"github.com/zenith-dev/zenith/internal/zerr"
)

// Study is a methodology-typed experiment with its own status machine
// (spec.md §3.1, §4.5).
type Study struct {
	ID          string
	OrgID       string
	SessionID   *string
	Title       string
	Methodology enum.StudyMethodology
	Status      enum.StudyStatus
	Summary     *string
	CreatedAt   string
	UpdatedAt   string
}

// StudyFullState is the result of GetStudyFullState: the study row plus its
// linked hypotheses, findings, and insights.
type StudyFullState struct {
	Study      Study
	Hypotheses []Hypothesis
	Findings   []Finding
	Insights   []Insight
}

// StudyProgress is the result of StudyProgress: hypothesis counts by status.
type StudyProgress struct {
	Total     int
	Confirmed int
	Debunked  int
	Untested  int
}

// StudyRepo is the repository surface for studies, including the composite
// operations spec.md §4.5 names: add_assumption, record_test_result,
// conclude_study, get_study_full_state, study_progress.
type StudyRepo struct {
	d          deps
	links      *links.Graph
	hypotheses *HypothesisRepo
	findings   *FindingRepo
	insights   *InsightRepo
}

// NewStudyRepo constructs a StudyRepo. The collaborator repositories are
// shared with the top-level wiring so every mutation still emits exactly
// one audit row and one trail entry each.
func NewStudyRepo(deps Deps, linkGraph *links.Graph, hypotheses *HypothesisRepo, findings *FindingRepo, insights *InsightRepo) *StudyRepo {
	return &StudyRepo{d: deps.asInternal(), links: linkGraph, hypotheses: hypotheses, findings: findings, insights: insights}
}

// Create inserts a new study in status "active".
func (r *StudyRepo) Create(ctx context.Context, orgID string, sessionID *string, title string, methodology enum.StudyMethodology) (Study, error) {
	s := Study{ID: ids.Generate(ids.Study), OrgID: orgID, SessionID: sessionID, Title: title, Methodology: methodology, Status: enum.StudyActive}
	ts := now()
	_, err := r.d.st.Execute(ctx, `
		INSERT INTO studies (id, org_id, session_id, title, methodology, status, summary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL, ?, ?)`,
		s.ID, s.OrgID, s.SessionID, s.Title, string(s.Methodology), string(s.Status), ts, ts)
	if err != nil {
		return Study{}, zerr.Wrap("repo: create study", err)
	}
	payload := map[string]any{"org_id": orgID, "title": title, "methodology": string(methodology), "status": string(s.Status)}
	if _, err := r.d.audit.Append(ctx, orgID, sessionID, "study", s.ID, enum.ActionCreated, payload); err != nil {
		return Study{}, err
	}
	if err := r.d.emitTrail(ctx, enum.OpCreate, "study", s.ID, payload); err != nil {
		return Study{}, err
	}
	return s, nil
}

// Get fetches a study by id.
func (r *StudyRepo) Get(ctx context.Context, id string) (Study, error) {
	row := r.d.st.QueryRow(ctx, `
		SELECT id, org_id, session_id, title, methodology, status, summary, created_at, updated_at
		FROM studies WHERE id = ?`, id)
	s, err := scanStudy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Study{}, zerr.NoResult
	}
	return s, err
}

// List returns up to limit studies for orgID, most recent first.
func (r *StudyRepo) List(ctx context.Context, orgID string, limit int) ([]Study, error) {
	rows, err := r.d.st.Query(ctx, `
		SELECT id, org_id, session_id, title, methodology, status, summary, created_at, updated_at
		FROM studies WHERE org_id = ? ORDER BY created_at DESC LIMIT ?`, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Study
	for rows.Next() {
		s, err := scanStudy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, zerr.Wrap("repo: list studies", rows.Err())
}

// Search runs an FTS MATCH query over study title/summary, ordered by rank.
func (r *StudyRepo) Search(ctx context.Context, orgID, query string, limit int) ([]Study, error) {
	rows, err := r.d.st.Query(ctx, `
		SELECT s.id, s.org_id, s.session_id, s.title, s.methodology, s.status, s.summary, s.created_at, s.updated_at
		FROM studies s JOIN studies_fts x ON x.rowid = s.rowid
		WHERE studies_fts MATCH ? AND s.org_id = ? ORDER BY rank LIMIT ?`, query, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Study
	for rows.Next() {
		s, err := scanStudy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, zerr.Wrap("repo: search studies", rows.Err())
}

// Delete removes a study by id.
func (r *StudyRepo) Delete(ctx context.Context, orgID, id string) error {
	if _, err := r.d.st.Execute(ctx, `DELETE FROM studies WHERE id = ?`, id); err != nil {
		return zerr.Wrap("repo: delete study", err)
	}
	if _, err := r.d.audit.Append(ctx, orgID, nil, "study", id, enum.ActionUpdated, nil); err != nil {
		return err
	}
	return r.d.emitTrail(ctx, enum.OpDelete, "study", id, map[string]any{})
}

// AddAssumption creates a hypothesis and a relates_to link from the study
// to it.
func (r *StudyRepo) AddAssumption(ctx context.Context, orgID, studyID, content string) (Hypothesis, error) {
	h, err := r.hypotheses.Create(ctx, orgID, nil, nil, nil, content)
	if err != nil {
		return Hypothesis{}, err
	}
	if _, err := r.links.CreateLink(ctx, orgID, "study", studyID, "hypothesis", h.ID, enum.RelationRelatesTo); err != nil {
		return Hypothesis{}, err
	}
	return h, nil
}

// RecordTestResult creates a finding and links study->finding (relates_to)
// and finding->hypothesis (validates).
func (r *StudyRepo) RecordTestResult(ctx context.Context, orgID, studyID, hypothesisID, content string, confidence enum.Confidence) (Finding, error) {
	f, err := r.findings.Create(ctx, orgID, nil, nil, content, nil, confidence)
	if err != nil {
		return Finding{}, err
	}
	if _, err := r.links.CreateLink(ctx, orgID, "study", studyID, "finding", f.ID, enum.RelationRelatesTo); err != nil {
		return Finding{}, err
	}
	if _, err := r.links.CreateLink(ctx, orgID, "finding", f.ID, "hypothesis", hypothesisID, enum.RelationValidates); err != nil {
		return Finding{}, err
	}
	return f, nil
}

// ConcludeStudy drives the study through concluding -> completed, stores
// summary, creates a high-confidence insight, and links study->insight
// (derived_from).
func (r *StudyRepo) ConcludeStudy(ctx context.Context, orgID, studyID, summary string) (Study, error) {
	s, err := r.Get(ctx, studyID)
	if err != nil {
		return Study{}, err
	}
	if !s.Status.CanTransitionTo(enum.StudyConcluding) {
		return Study{}, zerr.Wrapf(zerr.InvalidState, "repo: study %s cannot transition %s -> %s", studyID, s.Status, enum.StudyConcluding)
	}
	if err := r.transitionTo(ctx, orgID, &s, enum.StudyConcluding); err != nil {
		return Study{}, err
	}
	if !s.Status.CanTransitionTo(enum.StudyCompleted) {
		return Study{}, zerr.Wrapf(zerr.InvalidState, "repo: study %s cannot transition %s -> %s", studyID, s.Status, enum.StudyCompleted)
	}

	ts := now()
	if _, err := r.d.st.Execute(ctx, `UPDATE studies SET status = ?, summary = ?, updated_at = ? WHERE id = ?`,
		string(enum.StudyCompleted), summary, ts, studyID); err != nil {
		return Study{}, zerr.Wrap("repo: conclude study", err)
	}
	data := trail.TransitionData{From: string(enum.StudyConcluding), To: string(enum.StudyCompleted)}
	if _, err := r.d.audit.Append(ctx, orgID, nil, "study", studyID, enum.ActionStatusChanged, data); err != nil {
		return Study{}, err
	}
	if err := r.d.emitTrail(ctx, enum.OpTransition, "study", studyID, data); err != nil {
		return Study{}, err
	}

	ins, err := r.insights.Create(ctx, orgID, nil, nil, summary, enum.ConfidenceHigh)
	if err != nil {
		return Study{}, err
	}
	if _, err := r.links.CreateLink(ctx, orgID, "study", studyID, "insight", ins.ID, enum.RelationDerivedFrom); err != nil {
		return Study{}, err
	}
	return r.Get(ctx, studyID)
}

func (r *StudyRepo) transitionTo(ctx context.Context, orgID string, s *Study, next enum.StudyStatus) error {
	ts := now()
	if _, err := r.d.st.Execute(ctx, `UPDATE studies SET status = ?, updated_at = ? WHERE id = ?`, string(next), ts, s.ID); err != nil {
		return zerr.Wrap("repo: transition study", err)
	}
	data := trail.TransitionData{From: string(s.Status), To: string(next)}
	if _, err := r.d.audit.Append(ctx, orgID, nil, "study", s.ID, enum.ActionStatusChanged, data); err != nil {
		return err
	}
	if err := r.d.emitTrail(ctx, enum.OpTransition, "study", s.ID, data); err != nil {
		return err
	}
	s.Status = next
	return nil
}

// GetStudyFullState returns the study plus its linked hypotheses, findings,
// and insights. Per spec.md §7, a failure fetching any linked set is
// non-fatal: it is returned as an error only if the primary study row
// itself cannot be loaded.
func (r *StudyRepo) GetStudyFullState(ctx context.Context, studyID string) (StudyFullState, error) {
	s, err := r.Get(ctx, studyID)
	if err != nil {
		return StudyFullState{}, err
	}
	full := StudyFullState{Study: s}

	if ids, err := r.links.GetLinkedIDs(ctx, "study", studyID, "hypothesis"); err == nil {
		for _, id := range ids {
			if h, err := r.hypotheses.Get(ctx, id); err == nil {
				full.Hypotheses = append(full.Hypotheses, h)
			}
		}
	}
	if ids, err := r.links.GetLinkedIDs(ctx, "study", studyID, "finding"); err == nil {
		for _, id := range ids {
			if f, err := r.findings.Get(ctx, id); err == nil {
				full.Findings = append(full.Findings, f)
			}
		}
	}
	if ids, err := r.links.GetLinkedIDs(ctx, "study", studyID, "insight"); err == nil {
		for _, id := range ids {
			if i, err := r.insights.Get(ctx, id); err == nil {
				full.Insights = append(full.Insights, i)
			}
		}
	}
	return full, nil
}

// StudyProgress returns hypothesis counts by status for a study's linked
// hypotheses: {total, confirmed, debunked, untested}, where "untested"
// covers every status other than confirmed/debunked.
func (r *StudyRepo) StudyProgress(ctx context.Context, studyID string) (StudyProgress, error) {
	ids, err := r.links.GetLinkedIDs(ctx, "study", studyID, "hypothesis")
	if err != nil {
		return StudyProgress{}, err
	}
	p := StudyProgress{Total: len(ids)}
	for _, id := range ids {
		h, err := r.hypotheses.Get(ctx, id)
		if err != nil {
			continue
		}
		switch h.Status {
		case enum.HypothesisConfirmed:
			p.Confirmed++
		case enum.HypothesisDebunked:
			p.Debunked++
		default:
			p.Untested++
		}
	}
	return p, nil
}

func scanStudy(s rowScanner) (Study, error) {
	var st Study
	var sessionID, summary sql.NullString
	var methodology, status string
	if err := s.Scan(&st.ID, &st.OrgID, &sessionID, &st.Title, &methodology, &status, &summary, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return Study{}, zerr.Wrap("repo: scan study", err)
	}
	st.Methodology = enum.StudyMethodology(methodology)
	st.Status = enum.StudyStatus(status)
	if sessionID.Valid {
		st.SessionID = &sessionID.String
	}
	if summary.Valid {
		st.Summary = &summary.String
	}
	return st, nil
}
