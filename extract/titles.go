package extract

import "strings"

// ChapterTitles recovers individual chapter titles from the chapter
// selector's option labels.
//
// The archive emits unclosed <option> tags. Depending on the parser the
// labels come back in one of three shapes, which are detected rather than
// assumed:
//
//   - suffix-nested: each label is its own title followed by every later
//     title ("A2. B3. C", "2. B3. C", "3. C"). Walking from the last label
//     to the first, each label loses the untrimmed length of the label
//     consumed before it.
//   - prefix-growth: each label is every earlier title followed by its own
//     ("One", "OneTwo", "OneTwoThree"). Each label loses the length of the
//     label before it.
//   - independent: labels are already separate titles, which is what an
//     HTML5 parser produces.
func ChapterTitles(labels []string) []string {
	if len(labels) <= 1 {
		return append([]string{}, labels...)
	}

	switch {
	case isSuffixNested(labels):
		return trimSuffixNested(labels)
	case isPrefixGrowth(labels):
		return trimPrefixGrowth(labels)
	default:
		return append([]string{}, labels...)
	}
}

func isSuffixNested(labels []string) bool {
	for i := 0; i < len(labels)-1; i++ {
		if len(labels[i]) <= len(labels[i+1]) || !strings.HasSuffix(labels[i], labels[i+1]) {
			return false
		}
	}
	return true
}

func isPrefixGrowth(labels []string) bool {
	for i := 1; i < len(labels); i++ {
		if len(labels[i]) <= len(labels[i-1]) || !strings.HasPrefix(labels[i], labels[i-1]) {
			return false
		}
	}
	return true
}

func trimSuffixNested(labels []string) []string {
	titles := make([]string, len(labels))
	omit := 0
	for i := len(labels) - 1; i >= 0; i-- {
		label := labels[i]
		if omit > 0 {
			titles[i] = label[:len(label)-omit]
		} else {
			titles[i] = label
		}
		omit = len(label)
	}
	return titles
}

func trimPrefixGrowth(labels []string) []string {
	titles := make([]string, len(labels))
	titles[0] = labels[0]
	for i := 1; i < len(labels); i++ {
		titles[i] = labels[i][len(labels[i-1]):]
	}
	return titles
}
