package main

import "subway-network/internal/cli"

func main() {
	cli.Execute()
}
