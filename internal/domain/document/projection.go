package document

import (
	"golang.org/x/text/language"
)

// Category is the coarse dashboard bucket of a status
type Category string

const (
	CategoryDraft    Category = "draft"
	CategoryPending  Category = "pending"
	CategoryApproved Category = "approved"
	CategoryRejected Category = "rejected"
)

// Projection is the human-facing view of a document status
type Projection struct {
	Type     Type     `json:"documentType"`
	Status   Status   `json:"status"`
	Category Category `json:"category"`
	Label    string   `json:"label"`
}

// Counts holds the number of documents per category
type Counts struct {
	Draft    int64 `json:"draft"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Total    int64 `json:"total"`
}

// Add adds n documents of category c
func (c *Counts) Add(cat Category, n int64) {
	switch cat {
	case CategoryDraft:
		c.Draft += n
	case CategoryPending:
		c.Pending += n
	case CategoryApproved:
		c.Approved += n
	case CategoryRejected:
		c.Rejected += n
	default:
		return
	}
	c.Total += n
}

var supportedLanguages = []language.Tag{
	language.Indonesian, // default
	language.English,
}

var languageMatcher = language.NewMatcher(supportedLanguages)

// MatchLanguage picks the label language for an Accept-Language header.
// Indonesian is returned when nothing matches.
func MatchLanguage(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.Indonesian
	}
	_, idx, conf := languageMatcher.Match(tags...)
	if conf == language.No {
		return language.Indonesian
	}
	return supportedLanguages[idx]
}

var statusLabels = map[language.Tag]map[Status]string{
	language.Indonesian: {
		StatusDraft:           "Draf",
		StatusSubmitted:       "Diajukan",
		StatusPICChecked:      "Diperiksa PIC",
		StatusReviewedPIC:     "Direview PIC",
		StatusApproved:        "Disetujui",
		StatusApprovedDireksi: "Disetujui Direksi",
		StatusRejected:        "Ditolak",
	},
	language.English: {
		StatusDraft:           "Draft",
		StatusSubmitted:       "Submitted",
		StatusPICChecked:      "Checked by PIC",
		StatusReviewedPIC:     "Reviewed by PIC",
		StatusApproved:        "Approved",
		StatusApprovedDireksi: "Approved by Direksi",
		StatusRejected:        "Rejected",
	},
}

// CategoryOf maps a status to its dashboard category
func CategoryOf(s Status) Category {
	switch s {
	case StatusDraft:
		return CategoryDraft
	case StatusSubmitted, StatusPICChecked, StatusReviewedPIC:
		return CategoryPending
	case StatusApproved, StatusApprovedDireksi:
		return CategoryApproved
	case StatusRejected:
		return CategoryRejected
	}
	return CategoryPending
}

// ProjectStatus derives the projection of a (type, status) pair.
// It has no side effects.
func ProjectStatus(t Type, s Status, lang language.Tag) Projection {
	labels, ok := statusLabels[lang]
	if !ok {
		labels = statusLabels[language.Indonesian]
	}
	label, ok := labels[s]
	if !ok {
		label = string(s)
	}
	return Projection{Type: t, Status: s, Category: CategoryOf(s), Label: label}
}

// Project derives the projection of a document
func Project(d *Document, lang language.Tag) Projection {
	return ProjectStatus(d.Type, d.Status, lang)
}

// Aggregate counts documents per category. The result always equals the
// sum of Project over docs.
func Aggregate(docs []*Document) Counts {
	var c Counts
	for _, d := range docs {
		c.Add(CategoryOf(d.Status), 1)
	}
	return c
}

// AggregateStatusCounts folds grouped store counts into categories
func AggregateStatusCounts(rows []StatusCount) Counts {
	var c Counts
	for _, r := range rows {
		c.Add(CategoryOf(r.Status), r.Count)
	}
	return c
}
