package main

import "github.com/jrsteele09/mfi-console/cmd/console/cmd"

func main() {
	cmd.Execute()
}
