package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/ffharvest/story"
)

// reviewerLink matches a reviewer profile path, e.g. /u/42/name.
var reviewerLink = regexp.MustCompile(`^/u/(\d+)/`)

// Reviews extracts the reviews listed on a chapter's review page. Cells
// without a text body are dropped. The result is never nil.
func (e *Extractor) Reviews(raw []byte) ([]story.Review, error) {
	doc, err := parseDocument(raw)
	if err != nil {
		return nil, err
	}

	reviews := []story.Review{}

	table := doc.Find(e.layout.ReviewTable).First()
	if table.Length() == 0 {
		return reviews, nil
	}

	cells := table.Find("tbody").First().Find("td")
	if cells.Length() == 1 && strings.TrimSpace(cells.First().Text()) == e.layout.NoReviewsText {
		return reviews, nil
	}

	timeSelector := "span[" + e.layout.TimeAttr + "]"

	cells.Each(func(_ int, cell *goquery.Selection) {
		body := cell.Find("div").First()
		if body.Length() == 0 {
			return
		}

		reviews = append(reviews, story.Review{
			UserID: reviewerID(cell),
			Time:   reviewTime(cell.Find(timeSelector).First(), e.layout.TimeAttr),
			Text:   strings.TrimSpace(body.Text()),
		})
	})

	return reviews, nil
}

// reviewerID returns the id of the first reviewer profile link in the cell,
// or nil for an anonymous review.
func reviewerID(cell *goquery.Selection) *int64 {
	var id *int64
	cell.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		m := reviewerLink.FindStringSubmatch(href)
		if m == nil {
			return true
		}
		if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			id = &n
		}
		return false
	})
	return id
}

func reviewTime(sel *goquery.Selection, attr string) *int64 {
	value, ok := sel.Attr(attr)
	if !ok {
		return nil
	}
	t, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return nil
	}
	return &t
}
