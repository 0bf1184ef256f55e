package main

import (
	"fmt"
	"os"

	cli "github.com/spf13/pflag"

	"willow/internal/ipc"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: willow-ctl [--socket path] <mute|unmute|toggle|trigger|status|quit>\n")
	os.Exit(2)
}

func main() {
	socketPath := cli.String("socket", ipc.DefaultSocketPath, "Control socket path")
	cli.Parse()

	args := cli.Args()
	if len(args) != 1 {
		usage()
	}

	reply, err := ipc.Send(*socketPath, args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "willow daemon not running:", err)
		os.Exit(1)
	}

	if !reply.OK {
		fmt.Fprintln(os.Stderr, "error:", reply.Error)
		os.Exit(1)
	}

	if reply.Muted {
		fmt.Println("muted")
	} else {
		fmt.Println("listening")
	}
}
