package main

import (
	"alert-relay/internal/cli"
)

func main() {
	cli.Execute()
}
