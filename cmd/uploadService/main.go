package main

import (
	"github.com/welltold/storygo/internal/app/upload"
)

func main() {
	upload.Execute()
}
