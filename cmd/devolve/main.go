package main

import "github.com/jspreston/devolve/internal/cli"

func main() {
	cli.Main()
}
