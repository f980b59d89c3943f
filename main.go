package main

import "github.com/tollelege/catena/cmd"

func main() {
	cmd.Execute()
}
