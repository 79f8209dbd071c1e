package config

import "time"

// File represents the structure of the ims.yaml configuration file.
type File struct {
	DataDir        string        `yaml:"data_dir"`
	RegistryURL    string        `yaml:"registry_url"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	StatusInterval time.Duration `yaml:"status_interval"`
	Listen         string        `yaml:"listen"`
	Peers          []string      `yaml:"peers"`
	PrefetchCap    int           `yaml:"prefetch_cap"`
}
