package query

// Pagination is the metadata attached to a paginated read.
// From and To are nil when the page is empty.
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	PerPage     int  `json:"per_page"`
	Total       int  `json:"total"`
	LastPage    int  `json:"last_page"`
	From        *int `json:"from"`
	To          *int `json:"to"`
}

// NewPagination computes page metadata for a page holding count items
// out of total matching rows.
func NewPagination(page, perPage, total, count int) Pagination {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPageSize
	}

	last := (total + perPage - 1) / perPage
	if last < 1 {
		last = 1
	}

	p := Pagination{
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
		LastPage:    last,
	}
	if count > 0 {
		from := (page-1)*perPage + 1
		to := from + count - 1
		p.From = &from
		p.To = &to
	}
	return p
}
