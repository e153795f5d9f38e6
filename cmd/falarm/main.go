package main

import "github.com/ogulcanaydogan/Financial-Alarm/internal/cli"

func main() {
	cli.Execute()
}
