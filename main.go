package main

import "github.com/theirongolddev/accrue/cmd"

func main() {
	cmd.Execute()
}
