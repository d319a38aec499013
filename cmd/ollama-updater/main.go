package main

import "github.com/oshokin/ollama-updater/cmd/ollama-updater/cmd"

func main() {
	cmd.Execute()
}
