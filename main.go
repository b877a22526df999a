package main

import (
	"os"

	"github.com/smazurov/webcamcapture/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
