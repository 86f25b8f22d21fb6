package main

import "genesis/internal/cli"

func main() {
	cli.Execute()
}
