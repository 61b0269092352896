package main

import "github.com/frahmantamala/oneaccess/cmd"

func main() {
	cmd.Execute()
}
