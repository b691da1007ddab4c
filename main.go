package main

import "github.com/jfmyers9/yamp/cmd"

func main() {
	cmd.Execute()
}
