// Command rosterimport reconciles roster CSV extracts into the registry
// database.
package main

func main() {
	Execute()
}
