package paginator

import "strconv"

// Page is one window over an ordered listing.
type Page[T any] struct {
	Items    []T
	Number   int
	PerPage  int
	Total    int64
	NumPages int
}

// Window describes which slice of a listing a page covers before its items are loaded.
type Window struct {
	Number   int
	PerPage  int
	Total    int64
	NumPages int
}

// Paginate resolves the requested page number against total items. A missing or
// malformed number selects the first page and a number past the end selects the last.
func Paginate(raw string, perPage int, total int64) Window {
	numPages := 1
	if total > 0 {
		numPages = int((total + int64(perPage) - 1) / int64(perPage))
	}

	number, err := strconv.Atoi(raw)
	if err != nil || number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}
	return Window{Number: number, PerPage: perPage, Total: total, NumPages: numPages}
}

// Offset is the index of the first item of the window.
func (w Window) Offset() int {
	return (w.Number - 1) * w.PerPage
}

// Fill attaches the loaded items to the window.
func Fill[T any](w Window, items []T) *Page[T] {
	return &Page[T]{
		Items:    items,
		Number:   w.Number,
		PerPage:  w.PerPage,
		Total:    w.Total,
		NumPages: w.NumPages,
	}
}

func (p *Page[T]) Len() int { return len(p.Items) }

func (p *Page[T]) HasPrevious() bool { return p.Number > 1 }

func (p *Page[T]) HasNext() bool { return p.Number < p.NumPages }

func (p *Page[T]) PreviousNumber() int { return p.Number - 1 }

func (p *Page[T]) NextNumber() int { return p.Number + 1 }

// PageRange lists every page number, for page links.
func (p *Page[T]) PageRange() []int {
	pages := make([]int, p.NumPages)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}
