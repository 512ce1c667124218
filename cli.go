package main

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/manifoldco/promptui"

	"github.com/knockware/knocker/utils"
)

// runCli interactively generates a config file. Blocking; ctrl+C quits.
func runCli() {
	defer fmt.Printf("Interactive Mode exited.\n")

	fmt.Printf("Welcome to Interactive Mode. Let's build a knocker config. \n")

	var conf Config

	conf.Listen = promptAddr("Address for the proxy to listen on", "127.0.0.1:8080")
	conf.Destination = promptAddr("Destination address, where the child will listen", "127.0.0.1:8081")
	conf.IdleTimeout = promptDuration("Idle timeout before the child is terminated", "1h")
	conf.GracePeriod = promptDuration("Grace period between SIGTERM and SIGKILL", "10s")

	modeSelect := promptui.Select{
		Label: "Proxy mode",
		Items: []string{"tcp", "udp"},
	}
	_, mode, err := modeSelect.Run()
	if err != nil {
		fmt.Printf("Prompt failed %v\n", err)
		return
	}
	conf.UDP = mode == "udp"

	if !conf.UDP {
		holdSelect := promptui.Select{
			Label: "Hold inbound connections while the child is down? (experimental)",
			Items: []string{"no", "yes"},
		}
		_, hold, err := holdSelect.Run()
		if err != nil {
			fmt.Printf("Prompt failed %v\n", err)
			return
		}
		conf.HoldPackets = hold == "yes"
	}

	cmdPrompt := promptui.Prompt{
		Label: "Command to run as a child",
		Validate: func(s string) error {
			if s == "" {
				return utils.ErrInvalidData
			}
			return nil
		},
	}
	if conf.Command, err = cmdPrompt.Run(); err != nil {
		fmt.Printf("Prompt failed %v\n", err)
		return
	}

	namePrompt := promptui.Prompt{
		Label:   "File to write",
		Default: "knocker.toml",
	}
	name, err := namePrompt.Run()
	if err != nil {
		fmt.Printf("Prompt failed %v\n", err)
		return
	}

	f, err := os.Create(name)
	if err != nil {
		fmt.Printf("Could not create %q: %v\n", name, err)
		return
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(conf); err != nil {
		fmt.Printf("Could not write config: %v\n", err)
		return
	}

	fmt.Printf("Wrote %q. Start knocker with: knocker -c %v\n", name, name)
}

func promptAddr(label, def string) string {
	p := promptui.Prompt{
		Label:   label,
		Default: def,
		Validate: func(s string) error {
			_, _, err := net.SplitHostPort(s)
			return err
		},
	}
	v, err := p.Run()
	if err != nil {
		return def
	}
	return v
}

func promptDuration(label, def string) string {
	p := promptui.Prompt{
		Label:   label,
		Default: def,
		Validate: func(s string) error {
			_, err := time.ParseDuration(s)
			return err
		},
	}
	v, err := p.Run()
	if err != nil {
		return def
	}
	return v
}
