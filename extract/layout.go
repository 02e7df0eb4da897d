package extract

// LayoutVersion identifies the revision of the archive's markup described
// by DefaultLayout. Bump it whenever a selector changes.
const LayoutVersion = "2024.1"

// Layout is the page-structure contract the extractors rely on. Every
// selector the extractors use lives here so that markup drift on the
// archive only requires changing this value.
type Layout struct {
	// Story landing page
	PreStoryLinks string `json:"pre_story_links" yaml:"pre_story_links"`
	Profile       string `json:"profile" yaml:"profile"`
	Summary       string `json:"summary" yaml:"summary"`
	TimeAttr      string `json:"time_attr" yaml:"time_attr"`
	ChapterSelect string `json:"chapter_select" yaml:"chapter_select"`

	// Chapter page
	StoryText string `json:"story_text" yaml:"story_text"`

	// Review page
	ReviewTable   string `json:"review_table" yaml:"review_table"`
	NoReviewsText string `json:"no_reviews_text" yaml:"no_reviews_text"`

	// Listing page
	ListingTitle   string `json:"listing_title" yaml:"listing_title"`
	PaginationLast string `json:"pagination_last" yaml:"pagination_last"`
}

// DefaultLayout returns the layout of the archive's current markup.
func DefaultLayout() Layout {
	return Layout{
		PreStoryLinks:  "#pre_story_links",
		Profile:        "#profile_top",
		Summary:        ".xgray.xcontrast_txt",
		TimeAttr:       "data-xutime",
		ChapterSelect:  "#chap_select",
		StoryText:      ".storytext",
		ReviewTable:    ".table-striped",
		NoReviewsText:  "No Reviews found.",
		ListingTitle:   "a.stitle",
		PaginationLast: "Last",
	}
}

// WithDefaults returns a copy of l with every empty field taken from
// DefaultLayout.
func (l Layout) WithDefaults() Layout {
	d := DefaultLayout()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&l.PreStoryLinks, d.PreStoryLinks)
	fill(&l.Profile, d.Profile)
	fill(&l.Summary, d.Summary)
	fill(&l.TimeAttr, d.TimeAttr)
	fill(&l.ChapterSelect, d.ChapterSelect)
	fill(&l.StoryText, d.StoryText)
	fill(&l.ReviewTable, d.ReviewTable)
	fill(&l.NoReviewsText, d.NoReviewsText)
	fill(&l.ListingTitle, d.ListingTitle)
	fill(&l.PaginationLast, d.PaginationLast)
	return l
}
