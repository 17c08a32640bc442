package main

import "github.com/cockroachdb/differ/cmd"

func main() {
	cmd.Execute()
}
