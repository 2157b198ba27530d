package main

import (
	"poolwatch/internal/cli"
)

func main() {
	cli.Execute()
}
