package domain

// Path tags which retrieval strategy produced a candidate. Scores are
// only comparable between candidates sharing a path.
type Path string

// Retrieval path constants.
const (
	// PathFlight is the structured flight-lookup path.
	PathFlight Path = "flight"
	PathInfo   Path = "info"
)

// Candidate is a single retrieved evidence item: a flight record or a
// policy document chunk with its relevance score and originating path.
type Candidate struct {
	id       string
	score    float64
	path     Path
	content  string
	tags     map[string]string
	numerics map[string]float64
}

// NewCandidate creates a candidate.
func NewCandidate(
	id string, score float64, path Path, content string,
	tags map[string]string, numerics map[string]float64,
) Candidate {
	return Candidate{
		id: id, score: score, path: path, content: content,
		tags: tags, numerics: numerics,
	}
}

// ID returns the stable candidate identity used for deduplication.
func (c Candidate) ID() string { return c.id }

// Score returns the relevance score.
func (c Candidate) Score() float64 { return c.score }

// Path returns the originating retrieval path.
func (c Candidate) Path() Path { return c.path }

// Content returns the document or flight text.
func (c Candidate) Content() string { return c.content }

// Tags returns the keyword payload fields.
func (c Candidate) Tags() map[string]string { return c.tags }

// Numerics returns the numeric payload fields.
func (c Candidate) Numerics() map[string]float64 { return c.numerics }

// WithScore returns a copy of the candidate carrying a new score.
// Used by the reranker, which reorders but never invents candidates.
func (c Candidate) WithScore(score float64) Candidate {
	c.score = score
	return c
}
