package main

import "releasewatch/internal/cli"

func main() {
	cli.Execute()
}
