package main

import "country-feed-sync/cmd"

func main() {
	cmd.Execute()
}
