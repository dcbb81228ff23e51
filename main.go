package main

import "github.com/ValentinKolb/xceiver/cmd"

func main() {
	cmd.Execute()
}
