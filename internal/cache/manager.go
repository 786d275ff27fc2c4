package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Manager stacks the memory tier on top of the disk tier. Reads check L1
// then L2 and promote L2 hits; writes land in L1 immediately and in L2 in
// the background.
type Manager struct {
	memory *MemoryCache
	disk   *DiskCache // nil when no disk path is configured
	ttl    time.Duration

	writes sync.WaitGroup

	mu         sync.Mutex
	promotions int64
	closed     bool
}

// ManagerStats aggregates both tiers.
type ManagerStats struct {
	Memory     Stats
	Disk       Stats
	Promotions int64
}

// NewManager builds a Manager. An empty DiskPath keeps the cache in memory.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.MemoryCapacity <= 0 {
		cfg.MemoryCapacity = DefaultConfig().MemoryCapacity
	}

	m := &Manager{
		memory: NewMemoryCache(cfg.MemoryCapacity),
		ttl:    cfg.TTL,
	}

	if cfg.DiskPath != "" {
		if cfg.DiskCapacity <= 0 {
			cfg.DiskCapacity = DefaultConfig().DiskCapacity
		}
		disk, err := NewDiskCache(cfg.DiskPath, cfg.DiskCapacity, cfg.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create disk cache: %w", err)
		}
		m.disk = disk
	}

	return m, nil
}

// Get looks key up in memory, then on disk.
func (m *Manager) Get(key string) ([]byte, bool) {
	if data, ok := m.memory.Get(key); ok {
		return data, true
	}
	if m.disk == nil {
		return nil, false
	}

	data, ok := m.disk.Get(key)
	if !ok {
		return nil, false
	}

	// promotion is best effort
	if err := m.memory.Put(key, data); err == nil {
		m.mu.Lock()
		m.promotions++
		m.mu.Unlock()
	}
	return data, true
}

// Put caches value under key.
func (m *Manager) Put(key string, value []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.writes.Add(1)
	m.mu.Unlock()

	if err := m.memory.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
		m.writes.Done()
		return fmt.Errorf("memory cache: %w", err)
	}

	if m.disk == nil {
		m.writes.Done()
		return nil
	}

	go func() {
		defer m.writes.Done()
		if err := m.disk.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
			log.Warn("Could not write segment to disk cache", "key", key, "err", err)
		}
	}()
	return nil
}

// Delete removes key from both tiers.
func (m *Manager) Delete(key string) {
	m.memory.Delete(key)
	if m.disk != nil {
		m.disk.Delete(key)
	}
}

// Clear empties both tiers.
func (m *Manager) Clear() error {
	m.writes.Wait()
	m.memory.Clear()
	if m.disk != nil {
		return m.disk.Clear()
	}
	return nil
}

// Cleanup drops entries older than the configured TTL and returns how many
// segments were removed from each tier.
func (m *Manager) Cleanup() (memory, disk int) {
	if m.ttl <= 0 {
		return 0, 0
	}
	memory = m.memory.Prune(m.ttl)
	if m.disk != nil {
		disk = m.disk.RemoveOlderThan(time.Now().Add(-m.ttl))
	}
	log.Debug("Segment cache cleaned", "memory", memory, "disk", disk)
	return memory, disk
}

// Flush waits for pending background disk writes.
func (m *Manager) Flush() {
	m.writes.Wait()
}

// Stats returns counters for both tiers.
func (m *Manager) Stats() ManagerStats {
	s := ManagerStats{Memory: m.memory.Stats()}
	if m.disk != nil {
		s.Disk = m.disk.Stats()
	}
	m.mu.Lock()
	s.Promotions = m.promotions
	m.mu.Unlock()
	return s
}

// Close waits for pending writes and persists the disk index.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.writes.Wait()
	if m.disk != nil {
		if err := m.disk.Close(); err != nil {
			return fmt.Errorf("failed to close disk cache: %w", err)
		}
	}
	return nil
}
