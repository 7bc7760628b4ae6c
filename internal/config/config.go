// SPDX-License-Identifier: Apache-2.0

// Package config loads the YAML bootstrap configuration: server
// settings and queues to create at startup, the same shape as the
// teacher's config.go, generalized to the full queue attribute set and
// to snapshot persistence settings.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/essqueue/broker/internal/broker"
)

// Config is the top-level bootstrap configuration document.
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Queues   []QueueConfig `yaml:"queues"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// SnapshotConfig holds optional persistence settings.
type SnapshotConfig struct {
	Path            string `yaml:"path"`
	IntervalSeconds int    `yaml:"interval_seconds"`
}

// QueueConfig describes a queue to create at startup.
type QueueConfig struct {
	Name                          string `yaml:"name"`
	Fifo                          bool   `yaml:"fifo"`
	VisibilityTimeoutSeconds      int    `yaml:"visibility_timeout"`
	MessageRetentionPeriodSeconds int    `yaml:"message_retention_period"`
	MaximumMessageSize            int    `yaml:"maximum_message_size"`
	DelaySeconds                  int    `yaml:"delay_seconds"`
	ReceiveMessageWaitTimeSeconds int    `yaml:"receive_message_wait_time"`
	ContentBasedDeduplication     bool   `yaml:"content_based_deduplication"`
}

// Load reads and parses the YAML configuration file, applying spec §3
// defaults to any unset queue attribute.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9324
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Snapshot.IntervalSeconds == 0 {
		cfg.Snapshot.IntervalSeconds = 30
	}

	for i := range cfg.Queues {
		q := &cfg.Queues[i]
		if q.VisibilityTimeoutSeconds == 0 {
			q.VisibilityTimeoutSeconds = 30
		}
		if q.MessageRetentionPeriodSeconds == 0 {
			q.MessageRetentionPeriodSeconds = 345600
		}
		if q.MaximumMessageSize == 0 {
			q.MaximumMessageSize = 262144
		}
	}

	return &cfg, nil
}

// Bootstrap creates every queue listed in cfg against manager.
func Bootstrap(manager *broker.QueueManager, cfg *Config) error {
	for _, qc := range cfg.Queues {
		kind := broker.Standard
		if qc.Fifo {
			kind = broker.Fifo
		}
		bc := broker.Config{
			DefaultVisibilityTimeoutMillis: int64(qc.VisibilityTimeoutSeconds) * 1000,
			DelayMillis:                    int64(qc.DelaySeconds) * 1000,
			ReceiveMessageWaitMillis:       int64(qc.ReceiveMessageWaitTimeSeconds) * 1000,
			MessageRetentionMillis:         int64(qc.MessageRetentionPeriodSeconds) * 1000,
			MaxMessageSizeBytes:            qc.MaximumMessageSize,
			ContentBasedDeduplication:      qc.ContentBasedDeduplication,
		}
		if _, err := manager.CreateQueue(qc.Name, kind, bc); err != nil {
			return fmt.Errorf("failed to create queue %s: %w", qc.Name, err)
		}
	}
	return nil
}
