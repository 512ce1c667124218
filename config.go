package main

import (
	"time"

	"github.com/BurntSushi/toml"

	"github.com/knockware/knocker/utils"
)

// Config mirrors the flag surface, so a deployment can live in one toml
// file instead of a long command line. Durations use Go syntax ("1h30m",
// "10s"). Flags given explicitly on the command line override the file.
type Config struct {
	Listen      string `toml:"listen"`
	Destination string `toml:"destination"`
	IdleTimeout string `toml:"idle_timeout"`
	GracePeriod string `toml:"grace_period"`
	HoldPackets bool   `toml:"hold_packets"`
	UDP         bool   `toml:"udp"`
	Command     string `toml:"command"`
	LogFile     string `toml:"log_file"`
}

func loadConfigFile(name string) (*Config, error) {
	var c Config
	if _, err := toml.DecodeFile(name, &c); err != nil {
		return nil, utils.ErrInErr{ErrDesc: "failed to load config file", ErrDetail: err, Data: name}
	}
	return &c, nil
}

// applyConfigFile fills in every setting the command line did not give
// explicitly.
func applyConfigFile(c *Config) error {
	if !utils.IsFlagGiven("listen") && c.Listen != "" {
		listenAddr = c.Listen
	}
	if !utils.IsFlagGiven("dest") && c.Destination != "" {
		destAddr = c.Destination
	}
	if !utils.IsFlagGiven("idle") && c.IdleTimeout != "" {
		d, err := time.ParseDuration(c.IdleTimeout)
		if err != nil {
			return utils.ErrInErr{ErrDesc: "bad idle_timeout in config", ErrDetail: err, Data: c.IdleTimeout}
		}
		idleTimeout = d
	}
	if !utils.IsFlagGiven("grace") && c.GracePeriod != "" {
		d, err := time.ParseDuration(c.GracePeriod)
		if err != nil {
			return utils.ErrInErr{ErrDesc: "bad grace_period in config", ErrDetail: err, Data: c.GracePeriod}
		}
		gracePeriod = d
	}
	if !utils.IsFlagGiven("hold") {
		holdPackets = holdPackets || c.HoldPackets
	}
	if !utils.IsFlagGiven("u") {
		useUDP = useUDP || c.UDP
	}
	if !utils.IsFlagGiven("cmd") && c.Command != "" {
		childCommand = c.Command
	}
	if !utils.IsFlagGiven("lf") && c.LogFile != "" {
		logFileName = c.LogFile
	}
	return nil
}
