// Command admintoken generates an admin API token and prints the bcrypt
// hash to put in ADMIN_TOKEN_HASH. Pass -token to hash an existing token.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/keyxmakerx/folio/internal/plugins/auth"
)

func main() {
	token := flag.String("token", "", "hash this token instead of generating one")
	flag.Parse()

	if *token == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			fmt.Fprintln(os.Stderr, "generating token:", err)
			os.Exit(1)
		}
		*token = "folio_" + hex.EncodeToString(buf)
	}

	hash, err := auth.HashToken(*token)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("token:            %s\n", *token)
	fmt.Printf("ADMIN_TOKEN_HASH: %s\n", hash)
}
