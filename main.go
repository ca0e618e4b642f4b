package main

import "github.com/OmarAlqahtani/WorldWindAndroid2/cmd"

func main() {
	cmd.Execute()
}
