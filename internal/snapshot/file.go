// SPDX-License-Identifier: Apache-2.0

// Package snapshot persists a broker.QueueManager's state to disk as a
// JSON document, per spec §6's optional "Persisted state". It is a thin
// file-I/O wrapper: all snapshot/restore logic lives on
// broker.QueueManager itself.
package snapshot

import (
	"encoding/json"
	"os"

	"github.com/essqueue/broker/internal/broker"
)

// Save writes manager's current state to path.
func Save(manager *broker.QueueManager, path string) error {
	doc := manager.Snapshot()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads path and restores its contents into manager. A missing
// file is not an error: it means there is nothing to restore yet.
func Load(manager *broker.QueueManager, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var doc broker.ManagerSnapshot
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	return manager.Restore(doc)
}
