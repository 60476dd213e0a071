// Package hotness tracks how often pixels and coverage keys are requested.
package hotness

type Entry struct {
	Key   string  `json:"key"`
	Score float64 `json:"score"`
}

type Interface interface {
	Inc(key string)
	Score(key string) float64
	Reset(keys ...string)
	// Top returns up to n entries ordered by descending score.
	Top(n int) []Entry
}
