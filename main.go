package main

import (
	"os"

	"github.com/CryptoMainlyLee/cryptomainly-portal/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
