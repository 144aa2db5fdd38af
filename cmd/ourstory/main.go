// Command ourstory runs the site and its maintenance tasks.
package main

// version is set at build time via ldflags.
var version = "dev"

func main() {
	Execute()
}
