package main

import "github.com/mcoot/minesgame/internal/cli"

func main() {
	cli.Execute()
}
