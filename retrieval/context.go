package retrieval

import (
	"strings"
	"unicode/utf8"

	"bezbot/types"
)

const (
	ContextDelimiter = "\n\n---\n\n"
	// хвост чанка добавляется, только если в бюджете осталось больше 100 символов
	minTail = 100
)

// BuildContext greedily packs "paragraph_name\n\ntext" parts in rank order
// into a budget measured in characters. A part that does not fit is cut to
// the remaining budget plus "..." when more than minTail characters remain;
// assembly stops at the first part that does not fit. used is the number of
// results that contributed a part.
func BuildContext(results []types.SearchResult, budget int) (context string, used int) {
	parts := make([]string, 0, len(results))
	current := 0
	for _, r := range results {
		part := r.ParagraphName + "\n\n" + r.Text
		n := utf8.RuneCountInString(part)
		if current+n <= budget {
			parts = append(parts, part)
			current += n
			continue
		}
		if remaining := budget - current; remaining > minTail {
			parts = append(parts, truncateRunes(part, remaining)+"...")
		}
		break
	}
	return strings.Join(parts, ContextDelimiter), len(parts)
}

// CollectSources returns one source per distinct document in first-seen order.
// Results without a document name are skipped.
func CollectSources(results []types.SearchResult) []types.Source {
	sources := []types.Source{}
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		key := r.DocumentKey()
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		sources = append(sources, types.Source{
			DocumentName:      r.DocumentName,
			DocumentShortName: key,
			DocumentSource:    r.DocumentSource,
			DocumentNumber:    types.Optional(r.DocumentNumber),
			DocumentDate:      types.Optional(r.DocumentDate),
		})
	}
	return sources
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
