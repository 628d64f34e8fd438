package main

import "github.com/machlab/go-macho/cmd/mtool/cmd"

// set by goreleaser
var (
	version = "dev"
	commit  = ""
)

func main() {
	cmd.AppVersion = version
	cmd.AppBuildCommit = commit
	cmd.Execute()
}
