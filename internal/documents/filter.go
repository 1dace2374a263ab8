package documents

import (
	"strings"

	"immo-workers/internal/listing"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sort orders.
const (
	SortDate = "date"
	SortName = "name"
)

// DocumentFilter selects a page of the document list.
type DocumentFilter struct {
	Query string
	Type  string
	Sort  string
	Page  int
}

// ShareFilter selects a page of the share list.
type ShareFilter struct {
	Query       string
	App         string
	AccessLevel string
	Sort        string
	Page        int
}

// byName compares titles in German collation order so that umlauts sort
// next to their base letters.
func byName[T any](title func(T) string) func(a, b T) bool {
	c := collate.New(language.German, collate.IgnoreCase)
	return func(a, b T) bool {
		return c.CompareString(title(a), title(b)) < 0
	}
}

func documentOptions(f DocumentFilter, pageSize int) listing.Options[Document] {
	opts := listing.Options[Document]{Page: f.Page, PageSize: pageSize}
	if f.Query != "" {
		opts.Filters = append(opts.Filters, func(d Document) bool {
			return listing.MatchText(f.Query, d.Title, d.DocumentType)
		})
	}
	if f.Type != "" && f.Type != "all" {
		opts.Filters = append(opts.Filters, func(d Document) bool {
			return strings.EqualFold(d.DocumentType, f.Type)
		})
	}
	if f.Sort == SortName {
		opts.Less = byName(func(d Document) string { return d.Title })
	} else {
		opts.Less = func(a, b Document) bool { return a.CreatedDate.After(b.CreatedDate.Time) }
	}
	return opts
}

func shareOptions(f ShareFilter, pageSize int) listing.Options[Share] {
	opts := listing.Options[Share]{Page: f.Page, PageSize: pageSize}
	if f.Query != "" {
		opts.Filters = append(opts.Filters, func(s Share) bool {
			return listing.MatchText(f.Query, s.DocumentTitle, s.SharedWith, s.TargetApp)
		})
	}
	if f.App != "" && f.App != "all" {
		opts.Filters = append(opts.Filters, func(s Share) bool { return s.TargetApp == f.App })
	}
	if f.AccessLevel != "" && f.AccessLevel != "all" {
		opts.Filters = append(opts.Filters, func(s Share) bool { return s.AccessLevel == f.AccessLevel })
	}
	if f.Sort == SortName {
		opts.Less = byName(func(s Share) string { return s.DocumentTitle })
	} else {
		opts.Less = func(a, b Share) bool { return a.CreatedDate.After(b.CreatedDate.Time) }
	}
	return opts
}
