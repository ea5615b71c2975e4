package main

import "elective-allocation/cmd"

func main() {
	cmd.Execute()
}
