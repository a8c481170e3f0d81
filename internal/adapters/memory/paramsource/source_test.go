package paramsource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/movement-pass/public-api/internal/platform/configcache"
)

func TestFetchPage_PagesThroughEverythingUnderRoot(t *testing.T) {
	t.Parallel()

	values := map[string]string{"/other/v1/x": "ignored"}
	for i := 0; i < 23; i++ {
		values[fmt.Sprintf("/mp/v1/key%02d", i)] = fmt.Sprint(i)
	}
	src := New(values, 10)

	var got []string
	token := ""
	for {
		page, err := src.FetchPage(context.Background(), "/mp/v1", token)
		if err != nil {
			t.Fatalf("FetchPage: %v", err)
		}
		if len(page.Entries) > 10 {
			t.Fatalf("page exceeds size: %d entries", len(page.Entries))
		}
		for _, e := range page.Entries {
			got = append(got, e.Name)
		}
		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}

	if len(got) != 23 {
		t.Fatalf("expected 23 entries, got %d", len(got))
	}
	if src.Calls() != 3 {
		t.Fatalf("expected 3 calls, got %d", src.Calls())
	}
}

func TestFetchPage_BadToken(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, 0).FetchPage(context.Background(), "/mp/v1", "nope"); err == nil {
		t.Fatalf("expected error for unknown token")
	}
}

func TestConfigCache_FetchesOneSequenceAcrossPages(t *testing.T) {
	t.Parallel()

	values := map[string]string{}
	for i := 0; i < 25; i++ {
		values[fmt.Sprintf("k%02d", i)] = "v"
	}
	src := NewUnderRoot("/mp/v1", values)
	cache := configcache.New(src, "/mp/v1")

	for i := 0; i < 3; i++ {
		v, err := cache.Get(context.Background())
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if len(v) != 25 || v["k24"] != "v" {
			t.Fatalf("unexpected values: %d entries, k24=%q", len(v), v["k24"])
		}
	}
	// three pages, fetched exactly once
	if src.Calls() != 3 {
		t.Fatalf("expected 3 calls, got %d", src.Calls())
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "params.json")
	if err := os.WriteFile(path, []byte(`{"passesTable":"passes","jwtSecret":"s"}`), 0o600); err != nil {
		t.Fatalf("write params: %v", err)
	}

	src, err := LoadFile(path, "/mp/v1/")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	page, err := src.FetchPage(context.Background(), "/mp/v1", "")
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(page.Entries) != 2 || page.NextToken != "" {
		t.Fatalf("expected 2 entries on one page, got %d next=%q", len(page.Entries), page.NextToken)
	}
}
