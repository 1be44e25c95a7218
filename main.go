package main

import (
	cmd "github.com/FabienDubin/AppsByMci-V2-sub002/cmd/animagen"
)

func main() {
	cmd.Execute()
}
