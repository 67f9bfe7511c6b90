package main

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// hash-key generates the bcrypt hash for the proctor access key. Put the
// output in PROCTOR_KEY_HASH; the plaintext is never stored server-side.
func main() {
	fmt.Fprint(os.Stderr, "Proctor access key: ")
	key, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		log.Fatalf("Failed to read key: %v", err)
	}
	if len(key) == 0 {
		log.Fatal("Key must not be empty")
	}

	hash, err := bcrypt.GenerateFromPassword(key, bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash key: %v", err)
	}

	fmt.Println(string(hash))
}
