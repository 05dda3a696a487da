package main

import "github.com/Mohsinsiddi/zkcstake/cmd"

func main() {
	cmd.Execute()
}
