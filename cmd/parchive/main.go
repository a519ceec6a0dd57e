package main

import "github.com/javi11/parchive/cmd/parchive/cmd"

func main() {
	cmd.Execute()
}
