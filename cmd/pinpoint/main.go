package main

import "github.com/boolean-maybe/pinpoint/cli"

func main() {
	cli.Execute()
}
