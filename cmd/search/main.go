package main

import "github.com/taiga-forestry/multithreaded-search/cmd/search/cmd"

func main() {
	cmd.Execute()
}
