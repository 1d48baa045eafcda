package whoop

import go_json "github.com/goccy/go-json"

// Scored is the score block of a record together with its score state.
// The block is only observable when the state is SCORED, so callers cannot
// read score fields off a pending or unscorable record.
type Scored[T any] struct {
	state ScoreState
	score *T
}

func NewScored[T any](state ScoreState, score *T) Scored[T] {
	if !state.IsScored() {
		score = nil
	}
	return Scored[T]{state: state, score: score}
}

func Pending[T any]() Scored[T] { return Scored[T]{state: ScoreStatePendingScore} }

func (s Scored[T]) State() ScoreState { return s.state }

// Value returns the score block and true only for scored records that
// actually carried one.
func (s Scored[T]) Value() (T, bool) {
	if s.score == nil {
		var zero T
		return zero, false
	}
	return *s.score, true
}

func (s Scored[T]) Ptr() *T {
	if s.score == nil {
		return nil
	}
	v := *s.score
	return &v
}

// scoredFields is the wire shape of score_state + score shared by every resource.
type scoredFields[T any] struct {
	ScoreState ScoreState `json:"score_state"`
	Score      *T         `json:"score"`
}

func (f scoredFields[T]) scored() Scored[T] { return NewScored(f.ScoreState, f.Score) }

func fieldsOf[T any](s Scored[T]) scoredFields[T] {
	return scoredFields[T]{ScoreState: s.state, Score: s.score}
}

func decodeScored[T any](data []byte) (Scored[T], error) {
	var f scoredFields[T]
	if err := go_json.Unmarshal(data, &f); err != nil {
		return Scored[T]{}, err
	}
	return f.scored(), nil
}
