package main

import (
	"fmt"
	"os"
)

func leave() {
	// Calls outside main.main are fine.
	os.Exit(1)
}

func main() {
	fmt.Println("starting")
	os.Exit(1) // want "avoid using os.Exit in main.main"
}
