package main

import "github.com/semenovdl/review-stand/cmd/stand-expose/cmd"

func main() {
	cmd.Execute()
}
