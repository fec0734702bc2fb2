package config

import (
	"os"
	"time"
)

// Config holds server configuration values.
type Config struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level"`
	ServerName      string        `mapstructure:"server_name" yaml:"server_name"`
	MOTD            string        `mapstructure:"motd" yaml:"motd"`
	MaxSessions     int           `mapstructure:"max_sessions" yaml:"max_sessions"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	SendQueueSize   int           `mapstructure:"send_queue_size" yaml:"send_queue_size"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	name, err := os.Hostname()
	if err != nil || name == "" {
		name = "linechat"
	}

	return Config{
		Addr:            ":6667",
		LogLevel:        "info",
		ServerName:      name,
		MOTD:            "Welcome to the chat server!",
		MaxSessions:     4,
		IdleTimeout:     180 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		WriteTimeout:    10 * time.Second,
		SendQueueSize:   32,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.ServerName != "" {
		c.ServerName = other.ServerName
	}
	if other.MOTD != "" {
		c.MOTD = other.MOTD
	}
	if other.MaxSessions != 0 {
		c.MaxSessions = other.MaxSessions
	}
	if other.IdleTimeout != 0 {
		c.IdleTimeout = other.IdleTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.WriteTimeout != 0 {
		c.WriteTimeout = other.WriteTimeout
	}
	if other.SendQueueSize != 0 {
		c.SendQueueSize = other.SendQueueSize
	}
}
