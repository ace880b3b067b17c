package schema

// builtinSchemas holds the permissive JSON-Schema document for each entity
// kind's trail create payload. "Permissive" means additionalProperties is
// left unset (true): unknown fields pass, only the required shape and
// enum-constrained fields are checked, per spec.md §4.13.
var builtinSchemas = map[string][]byte{
	"session": []byte(`{
		"type": "object",
		"properties": {
			"status": {"enum": ["active", "wrapped_up", "abandoned"]},
			"started_at": {"type": "string"},
			"ended_at": {"type": ["string", "null"]},
			"summary": {"type": ["string", "null"]}
		},
		"required": ["status"]
	}`),
	"research": []byte(`{
		"type": "object",
		"properties": {
			"title": {"type": "string", "minLength": 1},
			"description": {"type": ["string", "null"]},
			"status": {"enum": ["open", "in_progress", "resolved", "abandoned"]}
		},
		"required": ["title", "status"]
	}`),
	"finding": []byte(`{
		"type": "object",
		"properties": {
			"content": {"type": "string", "minLength": 1},
			"source": {"type": ["string", "null"]},
			"confidence": {"enum": ["high", "medium", "low"]},
			"research_id": {"type": ["string", "null"]}
		},
		"required": ["content", "confidence"]
	}`),
	"hypothesis": []byte(`{
		"type": "object",
		"properties": {
			"content": {"type": "string", "minLength": 1},
			"status": {"enum": ["unverified", "analyzing", "confirmed", "debunked", "partially_confirmed", "inconclusive"]},
			"reason": {"type": ["string", "null"]},
			"research_id": {"type": ["string", "null"]},
			"finding_id": {"type": ["string", "null"]}
		},
		"required": ["content", "status"]
	}`),
	"insight": []byte(`{
		"type": "object",
		"properties": {
			"content": {"type": "string", "minLength": 1},
			"confidence": {"enum": ["high", "medium", "low"]},
			"research_id": {"type": ["string", "null"]}
		},
		"required": ["content", "confidence"]
	}`),
	"issue": []byte(`{
		"type": "object",
		"properties": {
			"title": {"type": "string", "minLength": 1},
			"description": {"type": ["string", "null"]},
			"issue_type": {"enum": ["bug", "feature", "spike", "epic", "request"]},
			"status": {"enum": ["open", "in_progress", "done", "blocked", "abandoned"]},
			"priority": {"type": "integer", "minimum": 0, "maximum": 9},
			"parent_id": {"type": ["string", "null"]}
		},
		"required": ["title", "issue_type", "status"]
	}`),
	"task": []byte(`{
		"type": "object",
		"properties": {
			"title": {"type": "string", "minLength": 1},
			"description": {"type": ["string", "null"]},
			"status": {"enum": ["open", "in_progress", "done", "blocked"]},
			"issue_id": {"type": ["string", "null"]},
			"research_id": {"type": ["string", "null"]}
		},
		"required": ["title", "status"]
	}`),
	"impl_log": []byte(`{
		"type": "object",
		"properties": {
			"task_id": {"type": "string", "minLength": 1},
			"file_path": {"type": "string", "minLength": 1},
			"line_start": {"type": ["integer", "null"]},
			"line_end": {"type": ["integer", "null"]},
			"note": {"type": ["string", "null"]}
		},
		"required": ["task_id", "file_path"]
	}`),
	"compat": []byte(`{
		"type": "object",
		"properties": {
			"package_a": {"type": "string", "minLength": 1},
			"package_b": {"type": "string", "minLength": 1},
			"status": {"enum": ["compatible", "incompatible", "conditional", "unknown"]},
			"note": {"type": ["string", "null"]}
		},
		"required": ["package_a", "package_b", "status"]
	}`),
	"study": []byte(`{
		"type": "object",
		"properties": {
			"title": {"type": "string", "minLength": 1},
			"methodology": {"enum": ["explore", "test_driven", "compare"]},
			"status": {"enum": ["active", "concluding", "completed", "abandoned"]},
			"summary": {"type": ["string", "null"]}
		},
		"required": ["title", "methodology", "status"]
	}`),
	"decision": []byte(`{
		"type": "object",
		"properties": {
			"title": {"type": "string", "minLength": 1},
			"rationale": {"type": ["string", "null"]}
		},
		"required": ["title"]
	}`),
	"trail_envelope": []byte(`{
		"type": "object",
		"properties": {
			"v": {"type": "integer", "default": 1},
			"ts": {"type": "string"},
			"ses": {"type": "string"},
			"op": {"enum": ["create", "update", "delete", "link", "unlink", "tag", "untag", "transition"]},
			"entity": {"type": "string"},
			"id": {"type": "string"}
		},
		"required": ["ts", "ses", "op", "entity", "id"]
	}`),
}
