package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionPrompt(t *testing.T) {
	assert.Equal(t, "SAY: ", Say.Prompt())
	assert.Equal(t, "SITUATIONAL_ANALYSIS: ", SituationalAnalysis.Prompt())

	q := Query("Is anyone there?", QueryAnswers{Kind: AnswerBoolean})
	assert.Equal(t, "QUERY: Is anyone there?\nANSWER: ", q.Prompt())
	assert.Equal(t, "QUERY: \nANSWER: ", Query("", QueryAnswers{}).Prompt())
}

func TestActionGrammar(t *testing.T) {
	for _, a := range AllActions()[1:] {
		assert.Equal(t, `root ::= [^ \t\n] [^\t\n]* "\n"`, a.Grammar(), a.Name())
	}

	tests := []struct {
		answers QueryAnswers
		want    string
	}{
		{QueryAnswers{Kind: AnswerBoolean}, `root ::= ("Yes" | "No") "\n"`},
		{QueryAnswers{Kind: AnswerNumber}, `root ::= [0-9]+ "\n"`},
		{QueryAnswers{Kind: AnswerString}, `root ::= [^\n]+ "\n"`},
		{QueryAnswers{Kind: AnswerLiterals, Literals: []string{"a", "b"}}, `root ::= ("a" | "b") "\n"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Query("q", tt.answers).Grammar())
	}
}

func TestAllActionsHaveNamesAndExplanations(t *testing.T) {
	seen := map[string]bool{}
	for _, a := range AllActions() {
		assert.NotEqual(t, "NONE", a.Name())
		assert.NotEmpty(t, a.Explanation(), a.Name())
		seen[a.Name()] = true
	}
	assert.Len(t, seen, 10)
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("PROBLEM_SOLVING", "", QueryAnswers{})
	require.NoError(t, err)
	assert.True(t, a.Equal(ProblemSolving))

	lits := QueryAnswers{Kind: AnswerLiterals, Literals: []string{"red", "green"}}
	q, err := ParseAction("QUERY", "Pick one", lits)
	require.NoError(t, err)
	assert.True(t, q.Equal(Query("Pick one", QueryAnswers{Kind: AnswerLiterals, Literals: []string{"red", "green"}})))

	_, err = ParseAction("DANCE", "", QueryAnswers{})
	assert.Error(t, err)
}

func TestQueryAnswersStringRoundTrip(t *testing.T) {
	for _, s := range []string{"boolean", "number", "string", "yes|no|maybe"} {
		qa, err := ParseQueryAnswers(s)
		require.NoError(t, err)
		assert.Equal(t, s, qa.String())
	}
	_, err := ParseQueryAnswers("|")
	assert.Error(t, err)
}

func TestQueryAnswersJSONRoundTrip(t *testing.T) {
	for _, qa := range []QueryAnswers{
		{Kind: AnswerBoolean},
		{Kind: AnswerNumber},
		{Kind: AnswerString},
		{Kind: AnswerLiterals, Literals: []string{"number"}},
		{Kind: AnswerLiterals, Literals: []string{"string"}},
		{Kind: AnswerLiterals, Literals: []string{"boolean"}},
		{Kind: AnswerLiterals, Literals: []string{"a|b", " padded ", "c"}},
	} {
		b, err := json.Marshal(qa)
		require.NoError(t, err)

		var got QueryAnswers
		require.NoError(t, json.Unmarshal(b, &got), string(b))
		assert.Equal(t, qa, got, string(b))
	}
}

func TestQueryAnswersJSONRejectsBadInput(t *testing.T) {
	var qa QueryAnswers
	assert.Error(t, json.Unmarshal([]byte(`{"kind":"literals"}`), &qa))
	assert.Error(t, json.Unmarshal([]byte(`{"kind":"colour"}`), &qa))

	_, err := json.Marshal(QueryAnswers{Kind: AnswerKind(42)})
	assert.Error(t, err)
}
