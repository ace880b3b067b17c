package trail

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/zenith-dev/zenith/internal/enum"
	"github.com/zenith-dev/zenith/internal/schema"
	"github.com/zenith-dev/zenith/internal/store"
	"github.com/zenith-dev/zenith/internal/zerr"
)

var replayTracer = otel.Tracer("github.com/zenith-dev/zenith/internal/trail")

// RebuildResult summarizes one rebuild() run.
type RebuildResult struct {
	Rebuilt            bool          `json:"rebuilt"`
	TrailFiles         int           `json:"trail_files"`
	OperationsReplayed int           `json:"operations_replayed"`
	EntitiesCreated    int           `json:"entities_created"`
	Duration           time.Duration `json:"duration_ms"`
}

// entityTable maps a trail envelope's entity name to its table. The one
// field whose column name differs, issue_type -> type (spec.md §4.4 step 5),
// is renamed in dispatchCreate and dispatchUpdate.
var entityTable = map[string]string{
	"session": "sessions", "research": "research", "finding": "findings",
	"hypothesis": "hypotheses", "insight": "insights", "issue": "issues",
	"task": "tasks", "impl_log": "impl_logs", "compat": "compats",
	"study": "studies", "decision": "decisions",
}

// Rebuild implements spec.md §4.4's replayer: it disables w (if non-nil,
// e.g. a writer for a fresh rebuild session) for the duration, reads every
// *.jsonl file under dir, sorts envelopes by timestamp, and dispatches each
// into st. In strict mode a create envelope that fails validation is
// skipped: it is neither logged nor counted separately in the result, and
// never aborts the run.
func Rebuild(ctx context.Context, dir string, st *store.Store, registry *schema.Registry, strict bool, w *Writer) (RebuildResult, error) {
	ctx, span := replayTracer.Start(ctx, "trail.Rebuild")
	defer span.End()

	start := time.Now()
	if w != nil {
		w.Disable()
		defer w.Enable()
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.jsonl"))
	if err != nil {
		return RebuildResult{}, zerr.Wrap("trail: rebuild glob", err)
	}

	var envs []Envelope
	for _, f := range files {
		fileEnvs, err := readEnvelopes(f)
		if err != nil {
			return RebuildResult{}, err
		}
		envs = append(envs, fileEnvs...)
	}

	sort.SliceStable(envs, func(i, j int) bool { return envs[i].Ts.Before(envs[j].Ts) })

	var created int
	for _, env := range envs {
		if strict && env.Op == enum.OpCreate && registry != nil {
			if errs := registry.Validate(env.Entity, env.Data); len(errs) > 0 {
				continue // skipped; never aborts
			}
		}
		didCreate, err := dispatch(ctx, st, env)
		if err != nil {
			return RebuildResult{}, err
		}
		if didCreate {
			created++
		}
	}

	return RebuildResult{
		Rebuilt:            true,
		TrailFiles:         len(files),
		OperationsReplayed: len(envs),
		EntitiesCreated:    created,
		Duration:           time.Since(start),
	}, nil
}

func readEnvelopes(path string) ([]Envelope, error) {
	// #nosec G304 - path comes from a directory glob this process manages
	f, err := os.Open(path)
	if err != nil {
		return nil, zerr.Wrap("trail: open trail file", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var out []Envelope
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var env Envelope
		if err := json.Unmarshal(line, &env); err != nil {
			return nil, zerr.Wrapf(err, "trail: parse %s", path)
		}
		if env.V != CurrentVersion {
			return nil, zerr.Wrapf(zerr.InvalidState, "trail: unsupported envelope version %d in %s", env.V, path)
		}
		out = append(out, env)
	}
	if err := sc.Err(); err != nil {
		return nil, zerr.Wrap("trail: scan", err)
	}
	return out, nil
}

func dispatch(ctx context.Context, st *store.Store, env Envelope) (created bool, err error) {
	switch env.Op {
	case enum.OpCreate:
		return true, dispatchCreate(ctx, st, env)
	case enum.OpUpdate:
		return false, dispatchUpdate(ctx, st, env)
	case enum.OpTransition:
		return false, dispatchTransition(ctx, st, env)
	case enum.OpDelete:
		return false, dispatchDelete(ctx, st, env)
	case enum.OpTag:
		return false, dispatchTag(ctx, st, env, true)
	case enum.OpUntag:
		return false, dispatchTag(ctx, st, env, false)
	case enum.OpLink:
		return false, dispatchLink(ctx, st, env, true)
	case enum.OpUnlink:
		return false, dispatchLink(ctx, st, env, false)
	default:
		return false, nil // unhandled combination: skipped
	}
}

func dispatchCreate(ctx context.Context, st *store.Store, env Envelope) error {
	table, ok := entityTable[env.Entity]
	if !ok {
		return nil
	}
	fields := map[string]any{}
	if err := json.Unmarshal(env.Data, &fields); err != nil {
		return zerr.Wrapf(err, "trail: create payload for %s", env.Entity)
	}
	fields["id"] = env.ID
	if _, ok := fields["created_at"]; !ok {
		fields["created_at"] = env.Ts
	}
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = env.Ts
	}
	if env.Entity == "issue" {
		if v, ok := fields["issue_type"]; ok {
			fields["type"] = v
			delete(fields, "issue_type")
		}
	}

	cols := make([]string, 0, len(fields))
	placeholders := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	for k, v := range fields {
		cols = append(cols, k)
		placeholders = append(placeholders, "?")
		args = append(args, v)
	}
	q := fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)", table, join(cols, ", "), join(placeholders, ", "))
	_, err := st.Execute(ctx, q, args...)
	return err
}

func dispatchUpdate(ctx context.Context, st *store.Store, env Envelope) error {
	table, ok := entityTable[env.Entity]
	if !ok {
		return nil
	}
	fields := map[string]any{}
	if err := json.Unmarshal(env.Data, &fields); err != nil {
		return zerr.Wrapf(err, "trail: update payload for %s", env.Entity)
	}
	if env.Entity == "issue" {
		if v, ok := fields["issue_type"]; ok {
			fields["type"] = v
			delete(fields, "issue_type")
		}
	}
	fields["updated_at"] = env.Ts

	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for k, v := range fields {
		sets = append(sets, fmt.Sprintf("%s = ?", k))
		args = append(args, v)
	}
	args = append(args, env.ID)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, join(sets, ", "))
	_, err := st.Execute(ctx, q, args...)
	return err
}

func dispatchTransition(ctx context.Context, st *store.Store, env Envelope) error {
	table, ok := entityTable[env.Entity]
	if !ok {
		return nil
	}
	var data TransitionData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return zerr.Wrapf(err, "trail: transition payload for %s", env.Entity)
	}

	switch env.Entity {
	case "hypothesis":
		_, err := st.Execute(ctx, `UPDATE hypotheses SET status = ?, reason = ?, updated_at = ? WHERE id = ?`,
			data.To, data.Reason, env.Ts, env.ID)
		return err
	case "session":
		_, err := st.Execute(ctx, `UPDATE sessions SET status = ?, ended_at = ?, updated_at = ? WHERE id = ?`,
			data.To, env.Ts, env.Ts, env.ID)
		return err
	default:
		_, err := st.Execute(ctx, fmt.Sprintf(`UPDATE %s SET status = ?, updated_at = ? WHERE id = ?`, table),
			data.To, env.Ts, env.ID)
		return err
	}
}

func dispatchDelete(ctx context.Context, st *store.Store, env Envelope) error {
	table, ok := entityTable[env.Entity]
	if !ok {
		return nil
	}
	// DELETE of an unknown id affects zero rows and returns no error: silent
	// success, matching the documented replay semantics.
	_, err := st.Execute(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), env.ID)
	return err
}

func dispatchTag(ctx context.Context, st *store.Store, env Envelope, tag bool) error {
	var data TagData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return zerr.Wrapf(err, "trail: tag payload")
	}
	if tag {
		_, err := st.Execute(ctx, `INSERT OR IGNORE INTO finding_tags (finding_id, tag) VALUES (?, ?)`, env.ID, data.Tag)
		return err
	}
	_, err := st.Execute(ctx, `DELETE FROM finding_tags WHERE finding_id = ? AND tag = ?`, env.ID, data.Tag)
	return err
}

func dispatchLink(ctx context.Context, st *store.Store, env Envelope, link bool) error {
	var data LinkData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return zerr.Wrapf(err, "trail: link payload")
	}
	if link {
		_, err := st.Execute(ctx, `
			INSERT OR IGNORE INTO entity_links (id, org_id, source_type, source_id, target_type, target_id, relation, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			env.ID, data.OrgID, data.SourceType, data.SourceID, data.TargetType, data.TargetID, data.Relation, env.Ts)
		return err
	}
	_, err := st.Execute(ctx, `
		DELETE FROM entity_links WHERE source_type = ? AND source_id = ? AND target_type = ? AND target_id = ? AND relation = ?`,
		data.SourceType, data.SourceID, data.TargetType, data.TargetID, data.Relation)
	return err
}

func join(ss []string, sep string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += sep
		}
		out += s
	}
	return out
}
