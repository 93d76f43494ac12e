package search

// Paginator normalizes a requested page number against a result set's
// size, clamping out-of-range requests instead of erroring.
type Paginator struct {
	PerPage int
}

// NewPaginator builds a Paginator for perPage items per page, clamped
// to the 1..1000 range the validator enforces on paginate_by.
func NewPaginator(perPage int) *Paginator {
	if perPage < 1 {
		perPage = 1
	}
	if perPage > 1000 {
		perPage = 1000
	}
	return &Paginator{PerPage: perPage}
}

// Normalize clamps a requested page number to [1, pages], where pages
// is derived from total. A totally empty result set is always page 1
// of 1 page.
func (p *Paginator) Normalize(requested int, total int64) (page, pages int) {
	pages = int(total) / p.PerPage
	if int(total)%p.PerPage != 0 {
		pages++
	}
	if pages < 1 {
		pages = 1
	}

	page = requested
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	return page, pages
}

// Offset returns the SQL OFFSET for a normalized page number.
func (p *Paginator) Offset(page int) int {
	return (page - 1) * p.PerPage
}
