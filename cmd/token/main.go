// Command token signs API bearer tokens with the configured JWT secret, for
// operators and service accounts calling the purchasing API.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/erp/purchasing/internal/infrastructure/auth"
	"github.com/erp/purchasing/internal/infrastructure/config"
)

func main() {
	var (
		subject string
		name    string
		scopes  string
		ttl     time.Duration
	)
	flag.StringVar(&subject, "sub", "", "Token subject, e.g. a service account id (required)")
	flag.StringVar(&name, "name", "", "Display name carried in the token")
	flag.StringVar(&scopes, "scopes", auth.ScopeRead, "Comma separated scopes: "+
		strings.Join([]string{auth.ScopeRead, auth.ScopeWrite, auth.ScopeAdmin}, ", "))
	flag.DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fail("failed to load configuration: %v", err)
	}
	if cfg.JWT.Secret == "" {
		fail("jwt.secret is not configured")
	}

	parsed, err := parseScopes(scopes)
	if err != nil {
		fail("%v", err)
	}

	token, expires, err := auth.NewJWTService(cfg.JWT).Issue(auth.IssueInput{
		Subject: subject,
		Name:    name,
		Scopes:  parsed,
		TTL:     ttl,
	})
	if err != nil {
		fail("failed to issue token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "expires %s\n", expires.UTC().Format(time.RFC3339))
	fmt.Println(token)
}

func parseScopes(raw string) ([]string, error) {
	known := map[string]bool{auth.ScopeRead: true, auth.ScopeWrite: true, auth.ScopeAdmin: true}
	var scopes []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !known[s] {
			return nil, fmt.Errorf("unknown scope %q", s)
		}
		scopes = append(scopes, s)
	}
	return scopes, nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "token: "+format+"\n", args...)
	os.Exit(1)
}
