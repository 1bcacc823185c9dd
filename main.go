package main

import "github.com/ValentinKolb/fKV/cmd"

func main() {
	cmd.Execute()
}
