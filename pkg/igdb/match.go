package igdb

import (
	"fmt"
	"strings"

	"github.com/repackdex/repackdex/internal/titles"
)

type cover struct {
	ImageID string `json:"image_id"`
}

type candidate struct {
	Name             string   `json:"name"`
	FirstReleaseDate *float64 `json:"first_release_date"`
	Cover            *cover   `json:"cover"`
}

func (c candidate) hasCover() bool {
	return c.Cover != nil && strings.TrimSpace(c.Cover.ImageID) != ""
}

// buildQueries returns the exact-phrase search followed by the fuzzy name filter.
func buildQueries(search string) []string {
	safe := strings.ReplaceAll(search, `"`, `\"`)
	return []string{
		fmt.Sprintf(`search "%s"; fields name, first_release_date, cover.image_id; limit %d;`, safe, candidateLimit),
		fmt.Sprintf(`fields name, first_release_date, cover.image_id; where name ~ *"%s"*; limit %d;`, safe, candidateLimit),
	}
}

// selectMatch prefers a candidate whose normalized name contains, or is contained
// in, the search title (one with cover art first), then the first candidate with
// cover art, then the first candidate.
func selectMatch(candidates []candidate, search string) (candidate, bool) {
	if len(candidates) == 0 {
		return candidate{}, false
	}

	want := titles.Key(search)
	var named []candidate
	for _, cand := range candidates {
		name := titles.Key(cand.Name)
		if name == "" || want == "" {
			continue
		}
		if strings.Contains(name, want) || strings.Contains(want, name) {
			named = append(named, cand)
		}
	}
	for _, cand := range named {
		if cand.hasCover() {
			return cand, true
		}
	}
	if len(named) > 0 {
		return named[0], true
	}

	for _, cand := range candidates {
		if cand.hasCover() {
			return cand, true
		}
	}
	return candidates[0], true
}
