// Package paramsource serves hierarchical parameters from memory, one bounded page at a time.
package paramsource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/movement-pass/public-api/internal/ports/out/paramsource"
)

// DefaultPageSize matches the parameter store's maximum batch size.
const DefaultPageSize = 10

// Source is safe for concurrent use.
type Source struct {
	entries  []paramsource.Entry
	pageSize int

	calls atomic.Int64
}

// New returns a Source holding values keyed by full parameter name.
func New(values map[string]string, pageSize int) *Source {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	entries := make([]paramsource.Entry, 0, len(values))
	for k, v := range values {
		entries = append(entries, paramsource.Entry{Name: k, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return &Source{entries: entries, pageSize: pageSize}
}

// NewUnderRoot prefixes every key in values with root + "/".
func NewUnderRoot(root string, values map[string]string) *Source {
	root = strings.TrimRight(root, "/")
	full := make(map[string]string, len(values))
	for k, v := range values {
		full[root+"/"+k] = v
	}
	return New(full, DefaultPageSize)
}

// LoadFile reads a flat JSON object of relative keys (e.g. {"passesTable":"passes"}) and
// serves it under root.
func LoadFile(path, root string) (*Source, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read params file: %w", err)
	}
	var values map[string]string
	if err := json.Unmarshal(b, &values); err != nil {
		return nil, fmt.Errorf("decode params file %s: %w", path, err)
	}
	return NewUnderRoot(root, values), nil
}

// Calls returns the number of FetchPage calls served so far.
func (s *Source) Calls() int { return int(s.calls.Load()) }

func (s *Source) FetchPage(ctx context.Context, root, nextToken string) (paramsource.Page, error) {
	_ = ctx
	s.calls.Add(1)

	prefix := strings.TrimRight(root, "/") + "/"
	matched := make([]paramsource.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if strings.HasPrefix(e.Name, prefix) {
			matched = append(matched, e)
		}
	}

	offset := 0
	if nextToken != "" {
		n, err := strconv.Atoi(nextToken)
		if err != nil || n < 0 || n > len(matched) {
			return paramsource.Page{}, fmt.Errorf("paramsource: invalid next token %q", nextToken)
		}
		offset = n
	}

	end := offset + s.pageSize
	if end >= len(matched) {
		return paramsource.Page{Entries: matched[offset:]}, nil
	}
	return paramsource.Page{Entries: matched[offset:end], NextToken: strconv.Itoa(end)}, nil
}
