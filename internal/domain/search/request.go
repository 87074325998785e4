package search

import "fmt"

// Default request parameters.
const (
	DefaultThreshold    = 0.3
	DefaultMaxResults   = 100
	DefaultFusionWeight = 0.3
	DefaultTopKLabels   = 5
)

// Request is a validated search request.
type Request struct {
	folder       string
	query        string
	threshold    float64
	maxResults   int
	fusionWeight float64
	classify     bool
	topKLabels   int
}

// NewRequest creates a validated search request.
// fusionWeight is clamped to [0,1]; the other parameters are validated strictly.
func NewRequest(
	folder, query string,
	threshold float64, maxResults int,
	classify bool, fusionWeight float64, topKLabels int,
) (Request, error) {
	if folder == "" {
		return Request{}, fmt.Errorf("folder is required")
	}
	if query == "" {
		return Request{}, fmt.Errorf("query is required")
	}
	if threshold < -1 || threshold > 1 {
		return Request{}, fmt.Errorf("threshold must be in [-1,1], got %g", threshold)
	}
	if maxResults <= 0 {
		return Request{}, fmt.Errorf("max results must be positive, got %d", maxResults)
	}
	if topKLabels <= 0 {
		topKLabels = DefaultTopKLabels
	}
	if fusionWeight < 0 {
		fusionWeight = 0
	}
	if fusionWeight > 1 {
		fusionWeight = 1
	}

	return Request{
		folder:       folder,
		query:        query,
		threshold:    threshold,
		maxResults:   maxResults,
		fusionWeight: fusionWeight,
		classify:     classify,
		topKLabels:   topKLabels,
	}, nil
}

// Folder returns the image directory to search.
func (r *Request) Folder() string { return r.folder }

// Query returns the free-text query.
func (r *Request) Query() string { return r.query }

// Threshold returns the minimum fused score for a result to be included.
func (r *Request) Threshold() float64 { return r.threshold }

// MaxResults returns the result cap.
func (r *Request) MaxResults() int { return r.maxResults }

// FusionWeight returns the label-score blend weight, already clamped to [0,1].
func (r *Request) FusionWeight() float64 { return r.fusionWeight }

// Classify reports whether auxiliary label scoring is enabled.
func (r *Request) Classify() bool { return r.classify }

// TopKLabels returns how many predicted labels to request per image.
func (r *Request) TopKLabels() int { return r.topKLabels }
