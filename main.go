package main

import "vpc-visualizer/cmd"

func main() {
	cmd.Execute()
}
