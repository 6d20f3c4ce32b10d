package service

import (
	"sync"

	"github.com/google/uuid"
)

// employeeLocks serializes ingestion per employee. Sharded so unrelated
// employees rarely contend; collisions only cost latency, never correctness
type employeeLocks struct {
	shards [64]sync.Mutex
}

func (l *employeeLocks) lock(id uuid.UUID) func() {
	s := &l.shards[int(id[0])%len(l.shards)]
	s.Lock()
	return s.Unlock
}
