package main

import "github.com/petrarca/dependency-resolver/internal/cmd"

func main() {
	cmd.Execute()
}
