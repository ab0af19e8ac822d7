package main

import "github.com/altingia/bamm/cmd"

func main() {
	cmd.Execute()
}
