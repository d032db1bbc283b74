package main

import (
	"github.com/welltold/storygo/internal/app/vault"
)

func main() {
	vault.Execute()
}
