package util

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxWindow bounds offset+limit; it matches the default
	// index.max_result_window of Elasticsearch.
	MaxWindow = 10000
)

// Offset turns a 1-based page and a page size into an offset and a limit.
// A missing size takes the default, a large one is capped, and pages past
// MaxWindow are clamped to the last reachable page.
func Offset(page, size int) (from, limit int) {
	switch {
	case size <= 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	lastPage := (MaxWindow-size)/size + 1
	if page < 1 {
		page = 1
	}
	if page > lastPage {
		page = lastPage
	}
	return (page - 1) * size, size
}
