package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pevans/ffharvest/story"
)

// integerValue matches a plain integer or one grouped with thousands
// separators ("1234", "1,234").
var integerValue = regexp.MustCompile(`^(\d+|\d{1,3}(,\d{3})+)$`)

// parseInteger reports whether s looks like an integer with optional
// thousands separators, and returns its value.
func parseInteger(s string) (int, bool) {
	if !integerValue.MatchString(s) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

// splitTag splits a "tag: value" summary segment. The tag is lower-cased.
func splitTag(segment string) (tag, value string, ok bool) {
	parts := strings.Split(strings.TrimSpace(segment), ":")
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.ToLower(strings.TrimSpace(parts[0])), strings.TrimSpace(parts[1]), true
}

// applyTags scans summary segments for "tag: value" pairs and stores them
// on md. Tags already present in set are skipped; text tags are added to
// set as they are stored.
func applyTags(md *story.Metadata, segments []string, set map[string]bool) {
	for _, segment := range segments {
		tag, value, ok := splitTag(segment)
		if !ok || tag == "" || set[tag] {
			continue
		}

		if n, isInt := parseInteger(value); isInt {
			setCounter(md, tag, n)
			continue
		}

		setText(md, tag, value)
		set[tag] = true
	}
}

func setCounter(md *story.Metadata, tag string, n int) {
	switch tag {
	case "reviews":
		md.NumReviews = &n
	case "favs":
		md.NumFavs = &n
	case "follows":
		md.NumFollows = &n
	case "words":
		md.NumWords = &n
	case "chapters":
		md.NumChapters = &n
	default:
		setExtra(md, "num_"+tag, strconv.Itoa(n))
	}
}

func setText(md *story.Metadata, tag, value string) {
	switch tag {
	case "rated":
		md.Rated = &value
	case "status":
		md.Status = value
	default:
		setExtra(md, tag, value)
	}
}

func setExtra(md *story.Metadata, key, value string) {
	if md.Extra == nil {
		md.Extra = make(map[string]string)
	}
	md.Extra[key] = value
}
