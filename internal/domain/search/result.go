package search

// Result is a single ranked image hit.
type Result struct {
	path        string
	fileName    string
	rank        int
	similarity  float64
	visualScore float64
	auxScore    float64
	labels      []string
}

// NewResult creates a ranked search result.
func NewResult(
	path, fileName string, rank int,
	similarity, visualScore, auxScore float64,
	labels []string,
) Result {
	return Result{
		path: path, fileName: fileName, rank: rank,
		similarity: similarity, visualScore: visualScore, auxScore: auxScore,
		labels: labels,
	}
}

// Path returns the absolute image path.
func (r *Result) Path() string { return r.path }

// FileName returns the image file name.
func (r *Result) FileName() string { return r.fileName }

// Rank returns the 1-based position after sorting and truncation.
func (r *Result) Rank() int { return r.rank }

// Similarity returns the fused relevance score.
func (r *Result) Similarity() float64 { return r.similarity }

// VisualScore returns the CLIP image-to-query cosine similarity.
func (r *Result) VisualScore() float64 { return r.visualScore }

// AuxScore returns the best label-to-query cosine similarity.
func (r *Result) AuxScore() float64 { return r.auxScore }

// Labels returns the classifier's predicted labels, best first.
func (r *Result) Labels() []string { return r.labels }
