package main

import (
	"os"

	"dealscope.dev/dealscope/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
