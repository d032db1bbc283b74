package main

import (
	"github.com/welltold/storygo/internal/app/pipeline"
)

func main() {
	pipeline.Execute()
}
