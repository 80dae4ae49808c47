package main

import (
	"clipnest/internal"
)

// main is the entry point of the application. All the wiring happens in the
// internal package, so this function only delegates.
func main() {
	internal.Init()
}
