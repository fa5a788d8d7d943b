package main

import "github.com/aqasim81/schema-shift/internal/cli"

func main() {
	cli.Execute()
}
