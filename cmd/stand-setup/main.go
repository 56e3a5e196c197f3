package main

import "github.com/semenovdl/review-stand/cmd/stand-setup/cmd"

func main() {
	cmd.Execute()
}
