package retry

import (
	"path/filepath"
	"testing"
	"time"
)

func TestProviderKeyManager_RoundRobin(t *testing.T) {
	m := NewProviderKeyManager(map[string][]string{"anthropic": {"k1", "k2"}}, "")

	k1, _, ok := m.Acquire("anthropic")
	if !ok || k1 != "k1" {
		t.Fatalf("first acquire = %q, %v, want k1, true", k1, ok)
	}
	k2, _, ok := m.Acquire("anthropic")
	if !ok || k2 != "k2" {
		t.Fatalf("second acquire = %q, %v, want k2, true", k2, ok)
	}
	k3, _, ok := m.Acquire("anthropic")
	if !ok || k3 != "k1" {
		t.Fatalf("third acquire = %q, %v, want k1, true (wrap around)", k3, ok)
	}
}

func TestProviderKeyManager_QuarantineExcludesKey(t *testing.T) {
	m := NewProviderKeyManager(map[string][]string{"anthropic": {"k1", "k2"}}, "")

	_, lease, _ := m.Acquire("anthropic") // k1
	m.Quarantine(lease, time.Hour)

	for i := 0; i < 3; i++ {
		key, _, ok := m.Acquire("anthropic")
		if !ok || key != "k2" {
			t.Fatalf("acquire %d = %q, %v, want k2, true", i, key, ok)
		}
	}
}

func TestProviderKeyManager_AllQuarantined(t *testing.T) {
	m := NewProviderKeyManager(map[string][]string{"anthropic": {"k1"}}, "")

	_, lease, _ := m.Acquire("anthropic")
	m.Quarantine(lease, time.Hour)

	if _, _, ok := m.Acquire("anthropic"); ok {
		t.Error("expected no available key")
	}
}

func TestProviderKeyManager_QuarantineMonotonicNonDecreasing(t *testing.T) {
	m := NewProviderKeyManager(map[string][]string{"anthropic": {"k1"}}, "")
	_, lease, _ := m.Acquire("anthropic")

	m.Quarantine(lease, 24*time.Hour)
	longDeadline := m.keys["anthropic"][0].quarantineUntil

	m.Quarantine(lease, time.Hour) // shorter, must not shrink the deadline
	if !m.keys["anthropic"][0].quarantineUntil.Equal(longDeadline) {
		t.Error("quarantine deadline must never decrease")
	}
}

func TestProviderKeyManager_PersistAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key_quarantine.json")

	m := NewProviderKeyManager(map[string][]string{"anthropic": {"k1", "k2"}}, path)
	_, lease, _ := m.Acquire("anthropic")
	m.Quarantine(lease, time.Hour)

	reloaded := NewProviderKeyManager(map[string][]string{"anthropic": {"k1", "k2"}}, path)
	if _, _, ok := reloaded.Acquire("anthropic"); !ok {
		t.Fatal("expected k2 still available after reload")
	}
	key, _, _ := reloaded.Acquire("anthropic")
	if key != "k2" {
		t.Errorf("after reload, acquired = %q, want k2 (k1 still quarantined)", key)
	}
}
