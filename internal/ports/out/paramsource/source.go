package paramsource

//go:generate mockgen -destination=mocks/mock_source.go -package=mocks github.com/movement-pass/public-api/internal/ports/out/paramsource Source

import "context"

// Entry is a single hierarchical parameter. Name is the full path including the root.
type Entry struct {
	Name  string
	Value string
}

// Page is one batch of parameters. An empty NextToken means the listing is complete.
type Page struct {
	Entries   []Entry
	NextToken string
}

// Source reads parameters stored under a hierarchical root path (e.g. "/movement-pass/v1").
// Secret values are returned decrypted.
type Source interface {
	FetchPage(ctx context.Context, root, nextToken string) (Page, error)
}
