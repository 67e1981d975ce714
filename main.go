package main

import "github.com/encodeous/canopy/cmd"

func main() {
	cmd.Execute()
}
