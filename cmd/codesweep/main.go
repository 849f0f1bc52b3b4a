package main

import (
	"github.com/mvp-joe/codesweep/internal/cli"
)

func main() {
	cli.Execute()
}
