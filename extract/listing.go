package extract

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/ffharvest/story"
)

// LastPage returns the final page number of a paginated listing, read from
// the "Last" pagination link (…&p=N). A listing without that link has a
// single page.
func (e *Extractor) LastPage(raw []byte) (int, error) {
	doc, err := parseDocument(raw)
	if err != nil {
		return 0, err
	}

	var href string
	found := false
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.TrimSpace(a.Text()) != e.layout.PaginationLast {
			return true
		}
		href, _ = a.Attr("href")
		found = true
		return false
	})
	if !found {
		return 1, nil
	}

	value := href[strings.LastIndex(href, "=")+1:]
	page, err := strconv.Atoi(value)
	if err != nil || page < 1 {
		return 0, &FieldError{Field: "last_page", Reason: "unexpected pagination link " + strconv.Quote(href)}
	}

	return page, nil
}

// ListingStoryIDs returns the ids of every story title link on a listing
// page, in page order. Links whose path does not carry an id are skipped.
func (e *Extractor) ListingStoryIDs(raw []byte) ([]story.ID, error) {
	doc, err := parseDocument(raw)
	if err != nil {
		return nil, err
	}

	ids := []story.ID{}
	doc.Find(e.layout.ListingTitle).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		// /s/<id>/<chapter>/<slug>
		parts := strings.Split(href, "/")
		if len(parts) < 3 {
			return
		}
		id, err := story.ParseID(parts[2])
		if err != nil {
			return
		}
		ids = append(ids, id)
	})

	return ids, nil
}
