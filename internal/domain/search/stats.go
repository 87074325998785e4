package search

import "time"

// Stats summarizes one search execution. Immutable once computed.
type Stats struct {
	totalImages    int
	matchingImages int
	elapsed        time.Duration
	query          string
}

// NewStats creates search statistics.
func NewStats(totalImages, matchingImages int, elapsed time.Duration, query string) Stats {
	return Stats{
		totalImages:    totalImages,
		matchingImages: matchingImages,
		elapsed:        elapsed,
		query:          query,
	}
}

// TotalImages returns the number of enumerated image files, regardless of threshold.
func (s *Stats) TotalImages() int { return s.totalImages }

// MatchingImages returns the number of results after threshold and truncation.
func (s *Stats) MatchingImages() int { return s.matchingImages }

// Elapsed returns the wall-clock search duration.
func (s *Stats) Elapsed() time.Duration { return s.elapsed }

// Query returns the free-text query the search ran with.
func (s *Stats) Query() string { return s.query }
