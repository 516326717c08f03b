package search

import (
	"strconv"
	"strings"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// Query is a parsed /find command.
type Query struct {
	RawInput string // The command as typed
	Terms    string // Free text matched against message content
	Author   string // Display name filter, case-insensitive
	Limit    int
}

// NewQuery parses command-line style arguments.
// Example: /find "deploy failed" --author bob --limit 5
func NewQuery(input string) Query {
	query := Query{RawInput: input, Limit: defaultLimit}

	parts := strings.Fields(input)
	var textTerms []string

	for i := 0; i < len(parts); i++ {
		part := parts[i]

		if strings.HasPrefix(part, "--") && i+1 < len(parts) {
			key := strings.TrimPrefix(part, "--")
			val := parts[i+1]
			switch key {
			case "author":
				query.Author = strings.ToLower(val)
			case "limit":
				if n, err := strconv.Atoi(val); err == nil && n > 0 {
					query.Limit = min(n, maxLimit)
				}
			}
			i++
			continue
		}

		if !strings.HasPrefix(part, "/") {
			textTerms = append(textTerms, strings.Trim(part, `"`))
		}
	}

	query.Terms = strings.TrimSpace(strings.Join(textTerms, " "))
	return query
}

// Empty reports a query with nothing to match on.
func (q Query) Empty() bool {
	return q.Terms == "" && q.Author == ""
}
