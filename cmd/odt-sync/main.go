package main

import "github.com/oshokin/odt-sync/cmd/odt-sync/cmd"

func main() {
	cmd.Execute()
}
