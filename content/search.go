package content

import "strings"

func matches(query string, e Entry) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(e.Post.Title), q) {
		return true
	}
	if strings.Contains(strings.ToLower(e.Post.Content), q) {
		return true
	}
	for _, tag := range e.Post.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}
