package main

import "github.com/semenovdl/review-stand/cmd/stand-provision/cmd"

func main() {
	cmd.Execute()
}
