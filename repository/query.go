package repository

import (
	"strings"

	"scorelib/model"
)

// SearchQuery describes a listing request: an optional free-text term
// matched against the four metadata fields, and an optional a-cappella
// filter. A nil ACappella means no filter.
type SearchQuery struct {
	Term      string
	ACappella *bool
}

const scoreColumns = `id, title, arranger, style, tempo, filename, a_cappella, created_at, updated_at`

// BuildScoresQuery renders the search as SQL. The term matches any of
// title, arranger, style or tempo as a substring; the filter narrows the
// term match. Results are always newest-first by id.
func BuildScoresQuery(q SearchQuery) (string, []interface{}) {
	sql := `SELECT ` + scoreColumns + ` FROM scores`
	var args []interface{}
	var clauses []string

	if q.Term != "" {
		clauses = append(clauses, `(title LIKE ? OR arranger LIKE ? OR style LIKE ? OR tempo LIKE ?)`)
		pattern := "%" + q.Term + "%"
		args = append(args, pattern, pattern, pattern, pattern)
	}
	if q.ACappella != nil {
		clauses = append(clauses, `a_cappella = ?`)
		args = append(args, *q.ACappella)
	}

	if len(clauses) > 0 {
		sql += ` WHERE ` + strings.Join(clauses, ` AND `)
	}
	sql += ` ORDER BY id DESC`

	return sql, args
}

// Matches reports whether a score satisfies the query. It is the in-process
// equivalent of BuildScoresQuery and the two must agree: MySQL LIKE under
// the default ci collation is case-insensitive, so both sides are
// lower-cased here.
func (q SearchQuery) Matches(s *model.Score) bool {
	if q.Term != "" {
		term := strings.ToLower(q.Term)
		if !strings.Contains(strings.ToLower(s.Title), term) &&
			!strings.Contains(strings.ToLower(s.Arranger), term) &&
			!strings.Contains(strings.ToLower(s.Style), term) &&
			!strings.Contains(strings.ToLower(s.Tempo), term) {
			return false
		}
	}
	if q.ACappella != nil && s.ACappella != *q.ACappella {
		return false
	}
	return true
}
