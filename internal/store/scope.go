package store

import "strings"

// OrgIDFilter builds the tenant-scoping SQL fragment, with "?" placeholders,
// and its arguments in placeholder order. With no org id it returns "1=0".
// With one org id it synthesizes "org_id = ?"; with several it synthesizes
// a set-membership "org_id IN (?, ?, ...)" so a caller whose identity
// carries multiple orgs (spec.md §9 open question on multi-org visibility)
// can be supported without changing this signature.
func OrgIDFilter(orgIDs ...string) (string, []any) {
	if len(orgIDs) == 0 {
		return "1=0", nil // no org scope supplied: match nothing rather than leak all tenants
	}
	if len(orgIDs) == 1 {
		return "org_id = ?", []any{orgIDs[0]}
	}
	placeholders := make([]string, len(orgIDs))
	args := make([]any, len(orgIDs))
	for i, id := range orgIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	return "org_id IN (" + strings.Join(placeholders, ", ") + ")", args
}
