package main

import "github.com/modguard/modguard/internal/cli"

func main() {
	cli.Execute()
}
