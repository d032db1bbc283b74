package main

import (
	"github.com/welltold/storygo/internal/app/tell"
)

func main() {
	tell.Execute()
}
