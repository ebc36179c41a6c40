// Command daqs plays, plans and serves dialogue worlds.
package main

func main() {
	Execute()
}
