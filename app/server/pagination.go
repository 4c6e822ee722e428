package server

// pageWindow returns the page numbers a list view should offer around the
// current page: a sliding window of up to ten pages, clamped to
// [1, pageCount]. A single page needs no pagination strip at all.
func pageWindow(page int, pageCount int) []int {
	if pageCount <= 1 {
		return []int{}
	}

	startIndex := page - 5
	endIndex := page + 5

	if startIndex < 0 {
		startIndex = 0
	}
	if endIndex-startIndex < 10 {
		endIndex = startIndex + 10
	}
	if endIndex > pageCount {
		endIndex = pageCount
	}
	if endIndex-startIndex < 10 {
		startIndex = endIndex - 10
	}
	if startIndex < 0 {
		startIndex = 0
	}

	pages := make([]int, 0, endIndex-startIndex)
	for p := startIndex; p < endIndex; p++ {
		pages = append(pages, p+1)
	}

	return pages
}
