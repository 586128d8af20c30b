package leaderboard

// Page is one page of a paginated list
type Page[T any] struct {
	Items      []T
	Page       int
	TotalPages int
	TotalItems int
}

// Paginate returns the requested 1-based page, clamping the page number into
// [1, TotalPages]. An empty list has one empty page.
//
// Pure function: No I/O operations, fully testable with direct inputs.
func Paginate[T any](items []T, pageSize, page int) Page[T] {
	if pageSize < 1 {
		pageSize = 1
	}

	totalPages := (len(items) + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}

	pageItems := make([]T, 0, end-start)
	pageItems = append(pageItems, items[start:end]...)

	return Page[T]{
		Items:      pageItems,
		Page:       page,
		TotalPages: totalPages,
		TotalItems: len(items),
	}
}
