package database

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// PrefixPattern returns a LIKE pattern matching values that start with prefix
func PrefixPattern(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}
