package search

import (
	"sort"

	domsearch "github.com/eitan-ker/photo-selector-poc/internal/domain/search"
	"github.com/eitan-ker/photo-selector-poc/internal/repository/gallery"
)

// candidate is a scored image awaiting ranking.
type candidate struct {
	image  gallery.Image
	visual float64
	aux    float64
	fused  float64
	labels []string
}

// rank filters candidates below threshold, sorts the rest by fused score
// descending, truncates to maxResults, and assigns 1-based ranks.
// The sort is stable: equal scores keep enumeration order, which makes
// result order deterministic for identical model outputs.
func rank(candidates []candidate, threshold float64, maxResults int) []domsearch.Result {
	kept := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.fused >= threshold {
			kept = append(kept, c)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].fused > kept[j].fused
	})

	if len(kept) > maxResults {
		kept = kept[:maxResults]
	}

	results := make([]domsearch.Result, len(kept))
	for i, c := range kept {
		results[i] = domsearch.NewResult(
			c.image.Path, c.image.Name, i+1,
			c.fused, c.visual, c.aux, c.labels,
		)
	}
	return results
}
