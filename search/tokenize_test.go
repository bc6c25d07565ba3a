package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWords(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		stopwords StopWords
		want      []string
	}{
		{"stop words and apostrophe", "Before the Devil Knows You're Dead", DefaultStopWords,
			[]string{"before", "devil", "knows", "you", "re", "dead"}},
		{"no stop words", "The Good, the Bad & the Ugly", nil,
			[]string{"the", "good", "the", "bad", "the", "ugly"}},
		{"ampersand dropped", "Tom & Jerry", DefaultStopWords, []string{"tom", "jerry"}},
		{"separators", "  2001:  A Space-Odyssey ", DefaultStopWords, []string{"2001", "space", "odyssey"}},
		{"unicode", "Amélie", nil, []string{"amélie"}},
		{"superscript digit separates", "Alien³", nil, []string{"alien"}},
		{"roman numeral rune separates", "Rocky Ⅱ", nil, []string{"rocky"}},
		{"empty", "", DefaultStopWords, []string{}},
		{"only stop words", "the a and", DefaultStopWords, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Words(tt.input, tt.stopwords)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPattern(t *testing.T) {
	p := NewPattern("")
	assert.Equal(t, "", p.String())
	assert.True(t, p.MatchString("anything"))

	p = NewPattern("  ")
	assert.Equal(t, "", p.String())

	p = NewPattern("Before sun")
	assert.NotEmpty(t, p.String())
	assert.True(t, p.MatchString("Before Sunrise"))
	assert.True(t, p.MatchString("The sun also rises"))
	assert.True(t, p.MatchString("under the SUN"))
	// whole words only
	assert.False(t, p.MatchString("Sunrise"))
	assert.False(t, p.MatchString("Beforehand"))

	// stop words are kept in the pattern
	p = NewPattern("the")
	assert.True(t, p.MatchString("The Thing"))

	p = NewPattern("you're")
	assert.True(t, p.MatchString("Before the Devil Knows You're Dead"))
	assert.False(t, p.MatchString("Youth"))

	// runes that split words for scoring are word boundaries here too
	p = NewPattern("alien")
	assert.True(t, p.MatchString("Alien³"))
	assert.True(t, p.MatchString("Alien²: Director's Cut"))
	assert.False(t, p.MatchString("Aliens"))
	assert.False(t, p.MatchString("Alien3"))
}
