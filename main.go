package main

import "hreq/cmd"

func main() {
	cmd.Execute()
}
