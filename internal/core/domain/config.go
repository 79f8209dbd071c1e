package domain

import "time"

// Config is the runtime configuration of an index node.
type Config struct {
	DataDir        string
	RegistryURL    string
	RetryDelay     time.Duration
	StatusInterval time.Duration
	Listen         string
	Peers          []string
	PrefetchCap    int
}
