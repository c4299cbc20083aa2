// Command hashpassword prints a bcrypt hash for seeding administrator accounts.
//
// Usage: hashpassword <password>
package main

import (
	"fmt"
	"io"
	"os"

	"cpaportal/internal/security"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, "Usage: hashpassword <password>")
		return 1
	}

	hash, err := security.HashPassword(args[0])
	if err != nil {
		fmt.Fprintf(stderr, "Failed to hash password: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, hash)
	return 0
}
