package main

import "github.com/CosmoTheDev/ctrlgrade/cmd"

func main() {
	cmd.Execute()
}
