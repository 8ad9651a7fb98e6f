package config

import "fmt"

// ConfigError describes missing or invalid configuration. It is fatal at
// startup: the chat never starts with a bad config.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Key, e.Reason)
}
