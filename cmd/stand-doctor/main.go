package main

import "github.com/semenovdl/review-stand/cmd/stand-doctor/cmd"

func main() {
	cmd.Execute()
}
