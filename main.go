package main

import "media-index/cmd"

func main() {
	cmd.Execute()
}
