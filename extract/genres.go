package extract

import "strings"

// HurtComfort is the one genre whose canonical name contains the genre
// delimiter.
const HurtComfort = "Hurt/Comfort"

const (
	hurtToken    = "Hurt"
	comfortToken = "Comfort"
)

// NormalizeGenres splits a slash-delimited genre string into labels.
//
// This is a narrow special case, not an escaping scheme: "Hurt" always
// becomes "Hurt/Comfort" and swallows a directly following "Comfort", and
// "Comfort" on its own is dropped. It assumes the two tokens never appear
// next to each other with unrelated meaning.
func NormalizeGenres(s string) []string {
	tokens := strings.Split(s, "/")
	genres := make([]string, 0, len(tokens))

	for i := 0; i < len(tokens); i++ {
		token := strings.TrimSpace(tokens[i])
		switch token {
		case "", comfortToken:
			continue
		case hurtToken:
			genres = append(genres, HurtComfort)
			if i+1 < len(tokens) && strings.TrimSpace(tokens[i+1]) == comfortToken {
				i++
			}
		default:
			genres = append(genres, token)
		}
	}

	return genres
}
