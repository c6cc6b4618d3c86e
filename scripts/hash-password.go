package main

import (
	"fmt"
	"os"

	"github.com/recvault/vault-server-go/internal/util"
)

// Prints a bcrypt hash for ADMIN_PASSWORD_HASH.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: go run scripts/hash-password.go <password>\n")
		os.Exit(1)
	}

	hash, err := util.HashPassword(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !util.CheckPasswordHash(os.Args[1], hash) {
		fmt.Fprintln(os.Stderr, "Error: generated hash does not verify")
		os.Exit(1)
	}

	fmt.Println(hash)
}
