// Package enum is the single source of truth for Zenith's typed domain
// enums: their canonical snake_case string forms and their transition
// tables. The teacher project duplicated status constants per-entity
// (internal/types.Status); spec.md's design notes (§9, "Enum mapping")
// explicitly call out that duplication as something to avoid, so this
// package generates every enum's string<->value mapping and transition
// table from one table per enum, never twice.
package enum

import "fmt"

// Enum is implemented by every domain enum below. String returns the
// canonical snake_case form used on the wire (trail JSONL, FTS queries,
// and JSON output).
type Enum interface {
	fmt.Stringer
	AllowedNext() []Enum
	CanTransitionTo(next Enum) bool
}

// table is a transition table keyed by the canonical string form of the
// "from" state, mapping to the set of allowed "to" states (by string form).
// A state with no entry, or an empty slice, is terminal.
type table map[string][]string

func (t table) allowedNext(from string) []string {
	return t[from]
}

func (t table) canTransition(from, to string) bool {
	for _, s := range t[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ---- Session ----

type SessionStatus string

const (
	SessionActive     SessionStatus = "active"
	SessionWrappedUp  SessionStatus = "wrapped_up"
	SessionAbandoned  SessionStatus = "abandoned"
)

var sessionTable = table{
	string(SessionActive): {string(SessionWrappedUp), string(SessionAbandoned)},
}

func (s SessionStatus) String() string { return string(s) }

func (s SessionStatus) AllowedNext() []Enum {
	return wrapStrings(sessionTable.allowedNext(string(s)), func(v string) Enum { return SessionStatus(v) })
}

func (s SessionStatus) CanTransitionTo(next Enum) bool {
	n, ok := next.(SessionStatus)
	return ok && sessionTable.canTransition(string(s), string(n))
}

// ---- Research ----

type ResearchStatus string

const (
	ResearchOpen       ResearchStatus = "open"
	ResearchInProgress ResearchStatus = "in_progress"
	ResearchResolved   ResearchStatus = "resolved"
	ResearchAbandoned  ResearchStatus = "abandoned"
)

var researchTable = table{
	string(ResearchOpen):       {string(ResearchInProgress)},
	string(ResearchInProgress): {string(ResearchResolved), string(ResearchAbandoned)},
}

func (s ResearchStatus) String() string { return string(s) }
func (s ResearchStatus) AllowedNext() []Enum {
	return wrapStrings(researchTable.allowedNext(string(s)), func(v string) Enum { return ResearchStatus(v) })
}
func (s ResearchStatus) CanTransitionTo(next Enum) bool {
	n, ok := next.(ResearchStatus)
	return ok && researchTable.canTransition(string(s), string(n))
}

// ---- Hypothesis ----

type HypothesisStatus string

const (
	HypothesisUnverified          HypothesisStatus = "unverified"
	HypothesisAnalyzing           HypothesisStatus = "analyzing"
	HypothesisConfirmed           HypothesisStatus = "confirmed"
	HypothesisDebunked            HypothesisStatus = "debunked"
	HypothesisPartiallyConfirmed  HypothesisStatus = "partially_confirmed"
	HypothesisInconclusive        HypothesisStatus = "inconclusive"
)

var hypothesisTable = table{
	string(HypothesisUnverified): {string(HypothesisAnalyzing)},
	string(HypothesisAnalyzing): {
		string(HypothesisConfirmed),
		string(HypothesisDebunked),
		string(HypothesisPartiallyConfirmed),
		string(HypothesisInconclusive),
	},
}

func (s HypothesisStatus) String() string { return string(s) }
func (s HypothesisStatus) AllowedNext() []Enum {
	return wrapStrings(hypothesisTable.allowedNext(string(s)), func(v string) Enum { return HypothesisStatus(v) })
}
func (s HypothesisStatus) CanTransitionTo(next Enum) bool {
	n, ok := next.(HypothesisStatus)
	return ok && hypothesisTable.canTransition(string(s), string(n))
}

// ---- Issue ----

type IssueStatus string

const (
	IssueOpen       IssueStatus = "open"
	IssueInProgress IssueStatus = "in_progress"
	IssueDone       IssueStatus = "done"
	IssueBlocked    IssueStatus = "blocked"
	IssueAbandoned  IssueStatus = "abandoned"
)

var issueTable = table{
	string(IssueOpen):       {string(IssueInProgress)},
	string(IssueInProgress): {string(IssueDone), string(IssueBlocked), string(IssueAbandoned)},
	string(IssueBlocked):    {string(IssueInProgress)},
}

func (s IssueStatus) String() string { return string(s) }
func (s IssueStatus) AllowedNext() []Enum {
	return wrapStrings(issueTable.allowedNext(string(s)), func(v string) Enum { return IssueStatus(v) })
}
func (s IssueStatus) CanTransitionTo(next Enum) bool {
	n, ok := next.(IssueStatus)
	return ok && issueTable.canTransition(string(s), string(n))
}

type IssueType string

const (
	IssueTypeBug     IssueType = "bug"
	IssueTypeFeature IssueType = "feature"
	IssueTypeSpike   IssueType = "spike"
	IssueTypeEpic    IssueType = "epic"
	IssueTypeRequest IssueType = "request"
)

func (t IssueType) String() string { return string(t) }

// ---- Task ----

type TaskStatus string

const (
	TaskOpen       TaskStatus = "open"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskBlocked    TaskStatus = "blocked"
)

var taskTable = table{
	string(TaskOpen):       {string(TaskInProgress)},
	string(TaskInProgress): {string(TaskDone), string(TaskBlocked)},
	string(TaskBlocked):    {string(TaskInProgress)},
}

func (s TaskStatus) String() string { return string(s) }
func (s TaskStatus) AllowedNext() []Enum {
	return wrapStrings(taskTable.allowedNext(string(s)), func(v string) Enum { return TaskStatus(v) })
}
func (s TaskStatus) CanTransitionTo(next Enum) bool {
	n, ok := next.(TaskStatus)
	return ok && taskTable.canTransition(string(s), string(n))
}

// ---- Study ----

type StudyStatus string

const (
	StudyActive     StudyStatus = "active"
	StudyConcluding StudyStatus = "concluding"
	StudyCompleted  StudyStatus = "completed"
	StudyAbandoned  StudyStatus = "abandoned"
)

var studyTable = table{
	string(StudyActive):     {string(StudyConcluding), string(StudyAbandoned)},
	string(StudyConcluding): {string(StudyCompleted), string(StudyAbandoned)},
}

func (s StudyStatus) String() string { return string(s) }
func (s StudyStatus) AllowedNext() []Enum {
	return wrapStrings(studyTable.allowedNext(string(s)), func(v string) Enum { return StudyStatus(v) })
}
func (s StudyStatus) CanTransitionTo(next Enum) bool {
	n, ok := next.(StudyStatus)
	return ok && studyTable.canTransition(string(s), string(n))
}

type StudyMethodology string

const (
	MethodologyExplore    StudyMethodology = "explore"
	MethodologyTestDriven StudyMethodology = "test_driven"
	MethodologyCompare    StudyMethodology = "compare"
)

func (m StudyMethodology) String() string { return string(m) }

// ---- Confidence (Finding / Insight) ----

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

func (c Confidence) String() string { return string(c) }

// ---- Compat ----

type CompatStatus string

const (
	CompatCompatible   CompatStatus = "compatible"
	CompatIncompatible CompatStatus = "incompatible"
	CompatConditional  CompatStatus = "conditional"
	CompatUnknown      CompatStatus = "unknown"
)

func (c CompatStatus) String() string { return string(c) }

// ---- Relation (entity links) ----

type Relation string

const (
	RelationBlocks           Relation = "blocks"
	RelationValidates        Relation = "validates"
	RelationDebunks          Relation = "debunks"
	RelationImplements       Relation = "implements"
	RelationRelatesTo        Relation = "relates_to"
	RelationDerivedFrom      Relation = "derived_from"
	RelationTriggers         Relation = "triggers"
	RelationSupersedes       Relation = "supersedes"
	RelationDependsOn        Relation = "depends_on"
	RelationFollowsPrecedent Relation = "follows_precedent"
	RelationOverridesPolicy  Relation = "overrides_policy"
)

func (r Relation) String() string { return string(r) }

// ---- Audit action ----

type AuditAction string

const (
	ActionCreated       AuditAction = "created"
	ActionUpdated       AuditAction = "updated"
	ActionStatusChanged AuditAction = "status_changed"
	ActionLinked        AuditAction = "linked"
	ActionUnlinked      AuditAction = "unlinked"
	ActionTagged        AuditAction = "tagged"
	ActionUntagged      AuditAction = "untagged"
	ActionIndexed       AuditAction = "indexed"
	ActionSessionStart  AuditAction = "session_start"
	ActionSessionEnd    AuditAction = "session_end"
	ActionWrapUp        AuditAction = "wrap_up"
)

func (a AuditAction) String() string { return string(a) }

// ---- Trail operation kinds ----

type TrailOp string

const (
	OpCreate     TrailOp = "create"
	OpUpdate     TrailOp = "update"
	OpDelete     TrailOp = "delete"
	OpLink       TrailOp = "link"
	OpUnlink     TrailOp = "unlink"
	OpTag        TrailOp = "tag"
	OpUntag      TrailOp = "untag"
	OpTransition TrailOp = "transition"
)

func (o TrailOp) String() string { return string(o) }

// ---- Catalog visibility ----

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityTeam    Visibility = "team"
	VisibilityPrivate Visibility = "private"
)

func (v Visibility) String() string { return string(v) }

func wrapStrings(ss []string, f func(string) Enum) []Enum {
	out := make([]Enum, len(ss))
	for i, s := range ss {
		out[i] = f(s)
	}
	return out
}
