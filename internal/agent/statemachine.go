package agent

import "github.com/projectlily/lily/internal/schema"

// NextAction is the fixed transition function of the action cycle. The zero
// Action (none) and any query both lead to situational analysis.
func NextAction(prev schema.Action) schema.Action {
	switch prev.Kind {
	case schema.KindSituationalAnalysis:
		return schema.EmotionalResponse
	case schema.KindEmotionalResponse:
		return schema.LogicalResponse
	case schema.KindLogicalResponse:
		return schema.ProblemIdentification
	case schema.KindProblemIdentification:
		return schema.GoalIdentification
	case schema.KindGoalIdentification:
		return schema.ProblemSolving
	case schema.KindProblemSolving:
		return schema.EmotionalState
	case schema.KindEmotionalState:
		return schema.Command
	case schema.KindCommand:
		return schema.Say
	default:
		return schema.SituationalAnalysis
	}
}

// StateMachine holds the current action. It is owned by the loop goroutine
// and is not safe for concurrent use.
type StateMachine struct {
	current schema.Action
}

func NewStateMachine() *StateMachine { return &StateMachine{} }

// Current returns the current action, or false before the first transition.
func (s *StateMachine) Current() (schema.Action, bool) {
	return s.current, s.current.Kind != schema.KindNone
}

// Next advances the cycle and returns the new current action.
func (s *StateMachine) Next() schema.Action {
	s.current = NextAction(s.current)
	return s.current
}

// Interrupt jumps straight into query. The following Next returns to
// situational analysis.
func (s *StateMachine) Interrupt(query schema.Action) schema.Action {
	if !query.IsQuery() {
		query = schema.Query(query.Question, query.Answers)
	}
	s.current = query
	return s.current
}
