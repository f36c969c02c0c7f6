package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ActionKind enumerates the cognitive states the agent cycles through.
type ActionKind int

const (
	KindNone ActionKind = iota
	KindQuery
	KindSituationalAnalysis
	KindEmotionalResponse
	KindLogicalResponse
	KindProblemIdentification
	KindGoalIdentification
	KindProblemSolving
	KindEmotionalState
	KindCommand
	KindSay
)

var actionNames = map[ActionKind]string{
	KindQuery:                 "QUERY",
	KindSituationalAnalysis:   "SITUATIONAL_ANALYSIS",
	KindEmotionalResponse:     "EMOTIONAL_RESPONSE",
	KindLogicalResponse:       "LOGICAL_RESPONSE",
	KindProblemIdentification: "PROBLEM_IDENTIFICATION",
	KindGoalIdentification:    "GOAL_IDENTIFICATION",
	KindProblemSolving:        "PROBLEM_SOLVING",
	KindEmotionalState:        "EMOTIONAL_STATE",
	KindCommand:               "COMMAND",
	KindSay:                   "SAY",
}

var actionExplanations = map[ActionKind]string{
	KindQuery:                 "When in this state, you will ask yourself a question, where your answer is used to determine your next action state.",
	KindSituationalAnalysis:   "When in this state, your goal is to analyze the current situation and observe as much information as possible about your current situation, especially the most recent events and messages.",
	KindEmotionalResponse:     "When in this state, try and respond emotionally to the current situation, if needed.",
	KindLogicalResponse:       "When in this state, try and respond logically to the current situation, if needed.",
	KindProblemIdentification: "Analyze your logical and emotional responses to identify if there is currently a potential problem, and what that problem is. This state only identifies problems, it does not solve them.",
	KindGoalIdentification:    "When in this state, identify the problem you are trying to solve, and define what your goal is. You do not need to determine how to solve the problem, just what the goal is. If there is no problem, then your goal may be assigned to any goal you wish to achieve.",
	KindProblemSolving:        "When in this state, try and think of solutions to approach your current specified goal. Come up with as many solutions as is practical, and then determine which solution is the best.",
	KindEmotionalState:        "Analyze your emotional response, as well as ALL PAST emotional responses and emotional states to identify your current emotional state.",
	KindCommand:               "When in this state, you may send a command to the interpreter, which will then be executed if possible.",
	KindSay:                   "When in this state, you may say something, using natural language, to the user. This is the ONLY state where you may directly communicate with the user.",
}

const lineGrammar = `root ::= [^ \t\n] [^\t\n]* "\n"`

// AnswerKind is the shape a query's answer must take.
type AnswerKind int

const (
	AnswerBoolean AnswerKind = iota
	AnswerNumber
	AnswerString
	AnswerLiterals
)

// QueryAnswers constrains the answer to a query. Literals is only read when
// Kind is AnswerLiterals.
type QueryAnswers struct {
	Kind     AnswerKind
	Literals []string
}

// Grammar returns the GBNF rule constraining the answer.
func (q QueryAnswers) Grammar() string {
	switch q.Kind {
	case AnswerLiterals:
		quoted := make([]string, len(q.Literals))
		for i, l := range q.Literals {
			quoted[i] = `"` + escapeGrammarLiteral(l) + `"`
		}
		return `root ::= (` + strings.Join(quoted, " | ") + `) "\n"`
	case AnswerString:
		return `root ::= [^\n]+ "\n"`
	case AnswerNumber:
		return `root ::= [0-9]+ "\n"`
	default:
		return `root ::= ("Yes" | "No") "\n"`
	}
}

// String renders the answers as "boolean", "number", "string" or "a|b|c".
// Use MarshalJSON for storage.
func (q QueryAnswers) String() string {
	switch q.Kind {
	case AnswerLiterals:
		return strings.Join(q.Literals, "|")
	case AnswerString:
		return "string"
	case AnswerNumber:
		return "number"
	default:
		return "boolean"
	}
}

// ParseQueryAnswers reads the answers argument of the query command. An empty
// string means boolean. Anything unrecognised is read as a literal list.
func ParseQueryAnswers(s string) (QueryAnswers, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "boolean", "bool", "yes/no":
		return QueryAnswers{Kind: AnswerBoolean}, nil
	case "number", "int":
		return QueryAnswers{Kind: AnswerNumber}, nil
	case "string", "text":
		return QueryAnswers{Kind: AnswerString}, nil
	}
	var lits []string
	for _, part := range strings.Split(s, "|") {
		if part = strings.TrimSpace(part); part != "" {
			lits = append(lits, part)
		}
	}
	if len(lits) == 0 {
		return QueryAnswers{}, fmt.Errorf("no answer literals in %q", s)
	}
	return QueryAnswers{Kind: AnswerLiterals, Literals: lits}, nil
}

var answerKindNames = map[AnswerKind]string{
	AnswerBoolean:  "boolean",
	AnswerNumber:   "number",
	AnswerString:   "string",
	AnswerLiterals: "literals",
}

type answersJSON struct {
	Kind     string   `json:"kind"`
	Literals []string `json:"literals,omitempty"`
}

// MarshalJSON encodes the answers losslessly, unlike String.
func (q QueryAnswers) MarshalJSON() ([]byte, error) {
	out := answersJSON{Kind: answerKindNames[q.Kind]}
	if out.Kind == "" {
		return nil, fmt.Errorf("unknown answer kind %d", q.Kind)
	}
	if q.Kind == AnswerLiterals {
		out.Literals = q.Literals
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (q *QueryAnswers) UnmarshalJSON(data []byte) error {
	var in answersJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	for kind, name := range answerKindNames {
		if name != in.Kind {
			continue
		}
		if kind == AnswerLiterals && len(in.Literals) == 0 {
			return fmt.Errorf("no answer literals in %s", data)
		}
		*q = QueryAnswers{Kind: kind}
		if kind == AnswerLiterals {
			q.Literals = in.Literals
		}
		return nil
	}
	return fmt.Errorf("unknown answer kind %q", in.Kind)
}

func escapeGrammarLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// Action is one cognitive state. Question and Answers are only meaningful for
// queries.
type Action struct {
	Kind     ActionKind
	Question string
	Answers  QueryAnswers
}

var (
	SituationalAnalysis   = Action{Kind: KindSituationalAnalysis}
	EmotionalResponse     = Action{Kind: KindEmotionalResponse}
	LogicalResponse       = Action{Kind: KindLogicalResponse}
	ProblemIdentification = Action{Kind: KindProblemIdentification}
	GoalIdentification    = Action{Kind: KindGoalIdentification}
	ProblemSolving        = Action{Kind: KindProblemSolving}
	EmotionalState        = Action{Kind: KindEmotionalState}
	Command               = Action{Kind: KindCommand}
	Say                   = Action{Kind: KindSay}
)

// Query builds a query action. question may be empty.
func Query(question string, answers QueryAnswers) Action {
	return Action{Kind: KindQuery, Question: question, Answers: answers}
}

// AllActions lists every state, query first, in cycle order.
func AllActions() []Action {
	return []Action{
		Query("", QueryAnswers{Kind: AnswerBoolean}),
		SituationalAnalysis,
		EmotionalResponse,
		LogicalResponse,
		ProblemIdentification,
		GoalIdentification,
		ProblemSolving,
		EmotionalState,
		Command,
		Say,
	}
}

func (a Action) IsQuery() bool { return a.Kind == KindQuery }

// Name is the upper-case display name, e.g. "SITUATIONAL_ANALYSIS".
func (a Action) Name() string {
	if n, ok := actionNames[a.Kind]; ok {
		return n
	}
	return "NONE"
}

func (a Action) String() string { return a.Name() }

// Prompt is the suffix appended to the rendered log right before generation.
func (a Action) Prompt() string {
	if a.IsQuery() {
		return "QUERY: " + a.Question + "\nANSWER: "
	}
	return a.Name() + ": "
}

// Grammar is the GBNF constraint for the model's response in this state.
func (a Action) Grammar() string {
	if a.IsQuery() {
		return a.Answers.Grammar()
	}
	return lineGrammar
}

// Explanation describes the state to the model.
func (a Action) Explanation() string { return actionExplanations[a.Kind] }

// Equal compares kind, question and answers.
func (a Action) Equal(b Action) bool {
	if a.Kind != b.Kind || a.Question != b.Question || a.Answers.Kind != b.Answers.Kind {
		return false
	}
	if len(a.Answers.Literals) != len(b.Answers.Literals) {
		return false
	}
	for i := range a.Answers.Literals {
		if a.Answers.Literals[i] != b.Answers.Literals[i] {
			return false
		}
	}
	return true
}

// ParseAction rebuilds an action from its stored name, question and answers.
func ParseAction(name, question string, answers QueryAnswers) (Action, error) {
	for kind, n := range actionNames {
		if n != strings.ToUpper(name) {
			continue
		}
		if kind != KindQuery {
			return Action{Kind: kind}, nil
		}
		return Query(question, answers), nil
	}
	return Action{}, fmt.Errorf("unknown action %q", name)
}
