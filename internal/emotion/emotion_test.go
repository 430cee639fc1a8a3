package emotion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudu/facemode/internal/mode"
)

func TestDominant(t *testing.T) {
	tests := []struct {
		name   string
		scores Scores
		want   string
	}{
		{"joy wins", Scores{"joy": 5, "anger": 1, "surprise": 2}, "joy"},
		{"anger wins", Scores{"joy": 2, "anger": 4}, "anger"},
		{"tie goes to label order", Scores{"surprise": 4, "anger": 4}, "anger"},
		{"below threshold", Scores{"joy": 2, "sorrow": 2}, Neutral},
		{"at threshold", Scores{"sorrow": 3}, "sorrow"},
		{"empty", Scores{}, Neutral},
		{"unknown label ignored", Scores{"disgust": 5}, Neutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Dominant(tt.scores, Possible))
		})
	}
}

func TestDominantIgnoresUnknown(t *testing.T) {
	assert.Equal(t, Neutral, Dominant(Scores{}, 0))
	assert.Equal(t, Neutral, Dominant(Scores{"joy": Unknown}, 0))
	assert.Equal(t, "anger", Dominant(Scores{"anger": VeryUnlikely}, 0))
}

func TestMappingMode(t *testing.T) {
	m := Mapping{"joy": 1, "anger": 2}
	assert.Equal(t, 1, m.Mode("joy"))
	assert.Equal(t, 2, m.Mode("anger"))
	assert.Equal(t, mode.None, m.Mode(Neutral))
}

func TestParseScores(t *testing.T) {
	scores, err := ParseScores("```json\n{\"joy\": 4, \"anger\": 9, \"surprise\": -1, \"other\": 3}\n```")
	require.NoError(t, err)

	assert.Equal(t, Scores{"joy": 4, "anger": VeryLikely, "surprise": Unknown, "sorrow": Unknown}, scores)
}

func TestParseScoresRejectsGarbage(t *testing.T) {
	_, err := ParseScores("I see a happy face")
	assert.Error(t, err)
}
