package main

import (
	"fmt"

	"github.com/boq-project/notify-dispatch/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Println(err.Error())
		return
	}
}
