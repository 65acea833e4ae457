package database

// Paginator is one page of rows plus the totals needed to render page links.
type Paginator struct {
	Data        []map[string]any
	Total       int64
	PerPage     int
	CurrentPage int
	LastPage    int

	// Result is the page query's result, or the failed count's.
	Result *Result
	Err    error
}

// HasMore reports whether a later page exists.
func (p *Paginator) HasMore() bool {
	return p.CurrentPage < p.LastPage
}
