package main

import (
	"github.com/welltold/storygo/internal/app/inform"
)

func main() {
	inform.Execute()
}
