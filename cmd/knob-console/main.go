// cmd/knob-console connects a terminal to the device's plaintext console.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"go.bug.st/serial"
)

func main() {
	device := flag.String("device", "/dev/ttyACM0", "serial device")
	baud := flag.Int("baud", 115200, "baud rate")
	flag.Parse()

	port, err := serial.Open(*device, &serial.Mode{BaudRate: *baud})
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer port.Close()

	// Device -> terminal.
	go func() {
		buf := make([]byte, 512)
		for {
			n, err := port.Read(buf)
			if err != nil {
				fmt.Fprintln(os.Stderr, "read:", err)
				os.Exit(1)
			}
			os.Stdout.Write(buf[:n])
		}
	}()

	// Terminal -> device.
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		if _, err := port.Write(append(sc.Bytes(), '\r', '\n')); err != nil {
			fmt.Fprintln(os.Stderr, "write:", err)
			os.Exit(1)
		}
	}
}
