package matcher

import (
	"math"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

const DefaultThreshold = 0.6

// Result is the nearest enrolled entry for a query vector.
type Result struct {
	StudentID int64
	Name      string
	Distance  float64
	Found     bool
}

// Nearest scans every entry and returns the one at minimum Euclidean distance.
// On ties the first entry in slice order wins. Found is false for empty input.
func Nearest(query []float64, entries []domain.EmbeddingEntry) Result {
	best := Result{Distance: math.Inf(1)}

	for _, e := range entries {
		d := EuclideanDistance(query, e.Embedding)
		if d < best.Distance {
			best = Result{StudentID: e.StudentID, Name: e.Name, Distance: d, Found: true}
		}
	}

	return best
}

// Matcher pairs the nearest-neighbour search with an acceptance threshold.
type Matcher struct {
	threshold float64
}

type Option func(*Matcher)

func WithThreshold(threshold float64) Option {
	return func(m *Matcher) {
		if threshold > 0 {
			m.threshold = threshold
		}
	}
}

func New(opts ...Option) *Matcher {
	m := &Matcher{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// IsMatch reports whether a distance is within the acceptance threshold (inclusive).
func (m *Matcher) IsMatch(distance float64) bool {
	return distance <= m.threshold
}

// Match returns the nearest entry and whether it is close enough to count as the same person.
func (m *Matcher) Match(query []float64, entries []domain.EmbeddingEntry) (Result, bool) {
	res := Nearest(query, entries)
	return res, res.Found && m.IsMatch(res.Distance)
}
