package posts_test

import (
	"testing"

	"github.com/codeshare/appcore/posts"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "nil", in: nil, want: nil},
		{name: "empty", in: []string{}, want: nil},
		{name: "trims whitespace", in: []string{"  go ", "web"}, want: []string{"go", "web"}},
		{name: "drops empties", in: []string{"", "  ", "go"}, want: []string{"go"}},
		{name: "dedupes case-insensitively keeping first spelling", in: []string{"React", "react", "REACT", "CSS"}, want: []string{"React", "CSS"}},
		{name: "all empty collapses to nil", in: []string{"", " "}, want: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, posts.NormalizeTags(tc.in))
		})
	}
}

func TestValidate(t *testing.T) {
	valid := posts.Post{ID: "p1", Title: "Title", Content: "body", AuthorID: "u1"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*posts.Post)
	}{
		{name: "missing id", mutate: func(p *posts.Post) { p.ID = "" }},
		{name: "missing title", mutate: func(p *posts.Post) { p.Title = "  " }},
		{name: "missing author", mutate: func(p *posts.Post) { p.AuthorID = "" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := valid
			tc.mutate(&p)
			require.Error(t, p.Validate())
		})
	}

	var nilPost *posts.Post
	require.Error(t, nilPost.Validate())
}
