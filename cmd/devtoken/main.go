package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	memparams "github.com/movement-pass/public-api/internal/adapters/memory/paramsource"
	"github.com/movement-pass/public-api/internal/domain"
	"github.com/movement-pass/public-api/internal/platform/auth/tokenissuer"
	platformclock "github.com/movement-pass/public-api/internal/platform/clock"
	"github.com/movement-pass/public-api/internal/platform/configcache"
)

// Dev-only helper that mints an applicant bearer token with the same settings the API
// verifies against, read from a local params file.
//
//	devtoken -mobile 01712345678 -name "Dev Applicant"
//
// No applicant record is created; pair it with a registered mobile when calling /passes.
func main() {
	_ = godotenv.Load()

	mobile := flag.String("mobile", "01700000000", "applicant mobile phone (token subject)")
	name := flag.String("name", "Dev Applicant", "applicant display name")
	photo := flag.String("photo", "", "applicant photo URL")
	paramsFile := flag.String("params", getenv("PARAMS_FILE", "params.local.json"), "params JSON file")
	root := flag.String("root", getenv("CONFIG_ROOT_KEY", "/movement-pass/v1"), "parameter root key")
	flag.Parse()

	source, err := memparams.LoadFile(*paramsFile, *root)
	if err != nil {
		fail(err)
	}
	issuer := tokenissuer.New(configcache.New(source, *root), platformclock.NewSystemClock())

	token, err := issuer.Sign(context.Background(), domain.Applicant{
		ID:    domain.ApplicantID(domain.NormalizeMobile(*mobile)),
		Name:  *name,
		Photo: *photo,
	})
	if err != nil {
		fail(err)
	}

	_ = json.NewEncoder(os.Stdout).Encode(map[string]string{
		"type":  "bearer",
		"token": token,
	})
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "devtoken: %v\n", err)
	os.Exit(1)
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
