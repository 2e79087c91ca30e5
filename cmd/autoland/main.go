package main

import "github.com/forgeflow/autoland/internal/cli"

func main() {
	cli.Execute()
}
