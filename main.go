package main

import "github.com/Tiliavir/timegrid/cmd"

func main() {
	cmd.Execute()
}
