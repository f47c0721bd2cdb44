package match

import "context"

// Page is one decoded page of past matches plus the raw body it came from.
type Page struct {
	Number  int
	Records []Record
	Raw     []byte
	// Request identifies the page request without credentials, e.g. "/csgo/matches/past?page=1&per_page=100".
	Request string
	// Total is the provider's X-Total header, or -1 when absent.
	Total int
}

type Source interface {
	FetchPastMatchesPage(ctx context.Context, page int) (Page, error)
}

type TableWriter interface {
	WriteTable(ctx context.Context, table Table) error
}
