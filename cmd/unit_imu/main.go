package main

import "github.com/relabs-tech/unit_imu/internal/cmd"

func main() {
	cmd.Execute()
}
