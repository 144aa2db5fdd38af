// Command ourstoryctl manages the timeline, playlist and letters of a
// running site from the terminal, and keeps a local list of special dates.
package main

func main() {
	Execute()
}
