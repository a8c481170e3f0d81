package idempotency

import (
	"testing"

	"github.com/movement-pass/public-api/internal/ports/out/idempotency"
)

func TestKey_DistinguishesEveryField(t *testing.T) {
	t.Parallel()

	base := idempotency.Fingerprint{Key: "k", Applicant: "01712345678", Method: "POST", Route: "/v1/passes/", BodyHash: "h"}
	variants := []idempotency.Fingerprint{base, base, base, base, base}
	variants[0].Key = "k2"
	variants[1].Applicant = "01812345678"
	variants[2].Method = "GET"
	variants[3].Route = "/v2/passes/"
	variants[4].BodyHash = ""

	seen := map[string]bool{key(base): true}
	for _, v := range variants {
		k := key(v)
		if seen[k] {
			t.Fatalf("collision for %+v", v)
		}
		seen[k] = true
	}
	if key(base) != key(base) {
		t.Fatalf("key is not deterministic")
	}
	if got := len(key(base)); got != len(keyPrefix)+64 {
		t.Fatalf("unexpected key length %d", got)
	}
}

func TestKey_SeparatorCannotBeForged(t *testing.T) {
	t.Parallel()

	a := idempotency.Fingerprint{Key: "ab", Applicant: "c"}
	b := idempotency.Fingerprint{Key: "a", Applicant: "bc"}
	if key(a) == key(b) {
		t.Fatalf("expected distinct keys for %+v and %+v", a, b)
	}
}
