package moderation

import (
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

// The dictionary uses specific words to avoid partial collisions (e.g., "he" inside "The")
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	dictionary := []string{"scammer", "fraud", "moneygram"}
	mod, err := NewModerator(dictionary, replacementChar, log)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{
			name:     "Simple word and space preservation",
			input:    "That seller is a scammer",
			expected: "That seller is a *******",
			words:    []string{"scammer"},
		},
		{
			name:     "Multiple occurrences",
			input:    "fraud fraud",
			expected: "***** *****",
			words:    []string{"fraud", "fraud"},
		},
		{
			name:     "Leet speak",
			input:    "Pure fr4ud !",
			expected: "Pure ***** !",
			words:    []string{"fraud"},
		},
		{
			name:     "Uppercase and extreme noise",
			input:    "S.C.A.M.M.E.R uses M-o-n-e-y-G-r-a-m",
			expected: "************* uses *****************",
			words:    []string{"scammer", "moneygram"},
		},
		{
			name:     "Accents and special characters (UTF-8)",
			input:    "Un véhicule de fraude",
			expected: "Un véhicule de *****e",
			words:    []string{"fraud"},
		},
		{
			name:     "Nothing to censor",
			input:    "Is the Civic still available?",
			expected: "Is the Civic still available?",
			words:    nil,
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
			words:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, words := mod.Censor(tt.input)
			req.Equal(tt.expected, content, "test=%s,", tt.name)
			req.Equal(tt.words, words, "expected=%s,words=%s", tt.expected, words)
		})
	}
}

func TestModerator_CornerCases(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given real noise and not Leet Speak associated
	dictionary := []string{"...", ",,,", "", "scammer"}

	mod, err := NewModerator(dictionary, replacementChar, log)
	req.NoError(err)

	// Then the sentence is censored
	content, words := mod.Censor("Not a scammer, promise")
	req.Equal("Not a *******, promise", content)
	req.Equal([]string{"scammer"}, words)

	// Then real noise is uncensored
	content, words = mod.Censor("Hello ...")
	req.Equal("Hello ...", content)
	req.Nil(words)
}

func TestModerator_Moderate_DetectsLanguageOfCensoredBodies(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	mod, err := NewModerator([]string{"fraud"}, replacementChar, log)
	req.NoError(err)

	// When a censored english body is moderated
	verdict := mod.Moderate("This listing is a complete fraud and the seller never answers any of my questions")

	// Then the language is tagged
	req.Equal([]string{"fraud"}, verdict.CensoredWords)
	req.Equal("en", verdict.Lang)
	req.Contains(verdict.Content, "*****")

	// When the body is clean
	verdict = mod.Moderate("Would you accept a trade-in for the Civic?")

	// Then it is untouched and not tagged
	req.Equal("Would you accept a trade-in for the Civic?", verdict.Content)
	req.Empty(verdict.Lang)
	req.Nil(verdict.CensoredWords)
}
