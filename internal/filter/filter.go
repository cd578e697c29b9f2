package filter

import (
	"strings"

	"github.com/fonsecaaso/tinylink/internal/model"
)

// Links returns the links whose code or long URL starts with query, ignoring case.
// An empty query keeps every link. The input slice is never modified.
func Links(links []model.Link, query string) []model.Link {
	q := strings.ToLower(query)

	result := make([]model.Link, 0, len(links))
	for _, link := range links {
		if matches(link, q) {
			result = append(result, link)
		}
	}

	return result
}

func matches(link model.Link, q string) bool {
	if q == "" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(link.Code), q) ||
		strings.HasPrefix(strings.ToLower(link.LongURL), q)
}
