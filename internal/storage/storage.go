package storage

import (
	"sync"

	"liquidityEngine/internal/model"
)

// Storage is a sink for engine events encoded as log records.
type Storage interface {
	PutLogBatch(logs []model.LogRecord) error
}

// MemoryStorage keeps log records in memory.
type MemoryStorage struct {
	mu   sync.Mutex
	logs []model.LogRecord
}

func (m *MemoryStorage) PutLogBatch(logs []model.LogRecord) error {
	m.mu.Lock()
	m.logs = append(m.logs, logs...)
	m.mu.Unlock()
	return nil
}

// Logs returns a copy of everything stored so far.
func (m *MemoryStorage) Logs() []model.LogRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.LogRecord(nil), m.logs...)
}
