package modelmatch

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "TL-IPC445GP-2.8", expected: "TL-IPC445GP"},
		{input: "TL-IPC445GP-4", expected: "TL-IPC445GP"},
		{input: "tl-ipc445gp-2.8", expected: "TL-IPC445GP"},
		{input: "  TL-IPC445GP-6  ", expected: "TL-IPC445GP"},
		{input: "TL-IPC445GP-12", expected: "TL-IPC445GP"},
		{input: "TL-IPC445GP-4MM", expected: "TL-IPC445GP"},
		{input: "TL-IPC445GP-2.8mm", expected: "TL-IPC445GP"},
		{input: "TL-IPC445GP", expected: "TL-IPC445GP"},
		// bare suffix, no hyphen
		{input: "TL-IPC4452.8", expected: "TL-IPC445"},
		// only a single suffix is stripped
		{input: "TL-IPC-4-4", expected: "TL-IPC-4"},
		// digits at the end of a model count as a bare suffix
		{input: "TL-SG1024", expected: "TL-SG102"},
		{input: "X-16", expected: "X-1"},
		{input: "", expected: ""},
	}

	for _, row := range table {
		require.Equal(t, row.expected, Normalize(row.input), "input %q", row.input)
	}
}

func TestBase(t *testing.T) {
	require.Equal(t, "TL", Base("TL-IPC445GP"))
	require.Equal(t, "TF", Base("TF_X1"))
	require.Equal(t, "SG2210P", Base("SG2210P"))
	require.Equal(t, "", Base("-ABC"))
}

func TestScoreCascade(t *testing.T) {
	table := []struct {
		query     string
		candidate string
		expected  int
	}{
		{query: "TL-IPC445GP", candidate: "tl-ipc445gp", expected: ScoreExact},
		{query: "TL-IPC445GP-2.8", candidate: "TL-IPC445GP-4", expected: ScoreNormalized},
		{query: "TL-IPC445GP-2.8", candidate: "TL-IPC445GP", expected: ScoreNormalized},
		{query: "TL-IPC445GP", candidate: "TL-IPC445GP-POE", expected: ScoreCandidateExtends},
		{query: "TL-IPC445G", candidate: "TL-IPC445GP", expected: ScoreCandidateExtends},
		{query: "TL-IPC445GP-POE", candidate: "TL-IPC445GP", expected: ScoreQueryExtends},
		{query: "TL-IPC445GP", candidate: "TL-XDR3010", expected: ScoreSameBase},
		{query: "IPC445", candidate: "XIPC445GP", expected: ScoreCandidateContains},
		{query: "XIPC445GP", candidate: "IPC445", expected: ScoreQueryContains},
		{query: "TL-IPC445GP", candidate: "SG2210P", expected: ScoreNone},
		{query: "", candidate: "SG2210P", expected: ScoreNone},
		{query: "SG2210P", candidate: "", expected: ScoreNone},
	}

	for _, row := range table {
		require.Equal(
			t, row.expected, Score(row.query, row.candidate),
			"score(%q, %q)", row.query, row.candidate,
		)
	}
}

func TestScoreNormalizedRaw(t *testing.T) {
	// the candidate itself normalizes further ("...-4-4" -> "...-4") so rule 2
	// fails, but the normalized query equals the raw candidate
	require.Equal(t, ScoreNormalizedRaw, Score("TL-IPC-4-4-4", "TL-IPC-4-4"))
}

func randomModel(rndm *rand.Rand) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_."
	n := 1 + rndm.Intn(16)
	out := make([]byte, n)
	for i := range out {
		out[i] = alphabet[rndm.Intn(len(alphabet))]
	}
	return string(out)
}

func TestScoreProperties(t *testing.T) {
	rndm := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		x := randomModel(rndm)
		y := randomModel(rndm)
		require.Equal(t, ScoreExact, Score(x, x), "score(x, x) for %q", x)
		require.Equal(t, ScoreNone, Score(x, ""))

		s := Score(x, y)
		require.GreaterOrEqual(t, s, 0)
		require.LessOrEqual(t, s, 100)
	}
}

func TestBest(t *testing.T) {
	index, score := Best("TL-IPC445GP-2.8", []string{
		"TL-XDR3010",
		"TL-IPC445GP-4",
		"TL-IPC445GP-2.8MM",
	})
	// both normalize to the same key and score 90, the closer string wins the tie
	require.Equal(t, 2, index)
	require.Equal(t, ScoreNormalized, score)

	index, score = Best("TL-IPC445GP", []string{"SG2210P", "TL-IPC445GP"})
	require.Equal(t, 1, index)
	require.Equal(t, ScoreExact, score)

	index, score = Best("TL-IPC445GP", nil)
	require.Equal(t, -1, index)
	require.Equal(t, 0, score)

	index, _ = Best("ABC", []string{"XYZ", "XYZ"})
	require.Equal(t, 0, index, "full ties keep the earliest candidate")
}
