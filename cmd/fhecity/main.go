package main

import "github.com/mcoot/fhecity/internal/cli"

func main() {
	cli.Execute()
}
