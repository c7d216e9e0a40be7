package repository

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// psql builds postgres flavoured statements.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern wraps term for a case-insensitive substring match with LIKE
// metacharacters escaped.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
