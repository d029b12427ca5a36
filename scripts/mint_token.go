//go:build ignore
// +build ignore

// Mint Token - issues a subscription-management bearer token by hand.
//
// Support tool for when a subscriber lost their confirmation email and asks
// for a fresh manage-subscription link. Uses the same secret and issuer as
// the running server, so the minted token validates there.
//
// Usage:
//   go run scripts/mint_token.go \
//     --email=jane@example.com \
//     --secret="$TOKEN_SECRET" \
//     --base-url=https://news.example.com \
//     --ttl=72h
package main

import (
	"flag"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/cozy-blogs/carajillo/internal/token"
)

func main() {
	email := flag.String("email", "", "subscriber email to mint the token for")
	secret := flag.String("secret", "", "token signing secret (must match the server)")
	baseURL := flag.String("base-url", "", "public base URL of the deployment")
	ttl := flag.Duration("ttl", 72*time.Hour, "token lifetime")
	flag.Parse()

	if *email == "" || *secret == "" || *baseURL == "" {
		log.Fatal("--email, --secret and --base-url are required")
	}

	parsed, err := url.Parse(*baseURL)
	if err != nil || parsed.Hostname() == "" {
		log.Fatalf("--base-url must be an absolute URL: %v", err)
	}

	authority, err := token.New(*secret, parsed.Hostname(), *ttl)
	if err != nil {
		log.Fatalf("token authority: %v", err)
	}

	tok, err := authority.Issue(*email)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}

	fmt.Println("token:")
	fmt.Println("  " + tok)
	fmt.Println("manage link:")
	fmt.Printf("  %s/subscription/confirm?token=%s\n", *baseURL, url.QueryEscape(tok))
}
