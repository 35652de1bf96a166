package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMajorGenre(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Drama, Thriller", "Drama"},
		{"superhero, ACTION, Comedy", "Action"},
		{"sci-fi", "Sci-Fi"},
		{"Psychological Drama", UnknownGenre},
		{"", UnknownGenre},
		{" , ,", UnknownGenre},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MajorGenre(tt.in), "input %q", tt.in)
	}
}

func TestGroupByMajorGenre(t *testing.T) {
	movies := []Movie{
		{Title: "A", Genre: "Horror"},
		{Title: "B", Genre: ""},
		{Title: "C", Genre: "horror, Comedy"},
	}
	groups := GroupByMajorGenre(movies)

	assert.Len(t, groups, 2)
	assert.Equal(t, []string{"A", "C"}, titles(groups["Horror"]))
	assert.Equal(t, []string{"B"}, titles(groups[UnknownGenre]))
}

func TestHasGenre(t *testing.T) {
	assert.True(t, HasGenre("Action, Sci-Fi", "sci-fi"))
	assert.True(t, HasGenre("Action", ""))
	assert.False(t, HasGenre("Action", "Act"))
	assert.False(t, HasGenre("", "Drama"))
}

func titles(ms []Movie) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Title)
	}
	return out
}
