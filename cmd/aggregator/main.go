package main

import (
	"github.com/vietddude/aggregator/internal/cli"
)

func main() {
	cli.Execute()
}
