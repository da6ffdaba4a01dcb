package aggregate

import "strings"

// queryBuilder accumulates SQL WHERE clauses and parameters for
// measurement queries.
type queryBuilder struct {
	whereClauses []string
	args         []any
}

// addClause appends a WHERE clause with its arguments.
func (qb *queryBuilder) addClause(clause string, args ...any) {
	qb.whereClauses = append(qb.whereClauses, clause)
	qb.args = append(qb.args, args...)
}

// addContainsClause appends a case-insensitive substring match on a
// column. References and lots are matched this way because operators
// type fragments, not exact identifiers.
func (qb *queryBuilder) addContainsClause(column, value string) {
	qb.whereClauses = append(qb.whereClauses, "UPPER("+column+") LIKE ? ESCAPE '\\'")
	qb.args = append(qb.args, "%"+escapeLikePattern(strings.ToUpper(value))+"%")
}

// build returns the WHERE clauses joined with AND.
func (qb *queryBuilder) build() string {
	return strings.Join(qb.whereClauses, " AND ")
}

// escapeLikePattern escapes special characters in LIKE patterns for the
// SQL ESCAPE clause.
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
