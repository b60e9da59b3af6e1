// Package main is a development utility that mints a push API key with its
// bcrypt hash and display prefix pre-computed. It prints the raw key and a
// ready-to-run SQL INSERT so a local database can be seeded with a working
// credential without going through the session flow. Keys minted here are for
// development databases only.
package main

import (
	"fmt"
	"log"

	"github.com/gem-registry/gem-registry/internal/auth"
)

func main() {
	key, hash, displayPrefix, err := auth.GenerateAPIKey()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("==========================================================")
	fmt.Println("Push API Key Generated")
	fmt.Println("==========================================================")
	fmt.Printf("\nFull Key: %s\n", key)
	fmt.Printf("\nHash: %s\n", hash)
	fmt.Printf("\nDisplay Prefix: %s\n", displayPrefix)
	fmt.Println("\n==========================================================")
	fmt.Println("SQL Insert:")
	fmt.Println("==========================================================")
	fmt.Printf(`
INSERT INTO api_keys (user_id, key_prefix, key_hash)
SELECT id, '%s', '%s'
FROM users WHERE email = 'dev@localhost';
`, displayPrefix, hash)
	fmt.Println("\n==========================================================")
	fmt.Printf("Authorization Header: %s\n", key)
	fmt.Println("==========================================================")
}
