package store

import (
	"encoding/json"
	"strings"

	"github.com/spetersoncode/unistore/retry"
)

// PersistPrefix namespaces every key the store writes to its adapter.
const PersistPrefix = "__p."

func persistKey(key string) string {
	return PersistPrefix + key
}

// SetPersist serializes value and writes it under key. Failures are logged
// and the write is skipped.
func (s *Store) SetPersist(key string, value any) {
	if s.adapter == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("can't persist key", "key", key, "error", &SerializationError{Key: key, Err: err})
		return
	}
	s.writeRaw(key, raw)
}

func (s *Store) writeRaw(key string, raw []byte) {
	err := retry.Run(s.ctx, s.retry, func() error {
		return s.adapter.Set(s.ctx, persistKey(key), string(raw))
	})
	if err != nil {
		s.logger.Error("can't persist key", "key", key, "error", &AdapterError{Op: "set", Key: key, Err: err})
	}
}

// GetPersist reads and deserializes the value stored under key. It reports
// false when the key is absent or cannot be read; failures are logged.
func (s *Store) GetPersist(key string) (any, bool) {
	raw, ok := s.readRaw(key)
	if !ok {
		return nil, false
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		s.logger.Error("can't get persisted key", "key", key, "error", &SerializationError{Key: key, Err: err})
		return nil, false
	}
	return value, true
}

func (s *Store) readRaw(key string) ([]byte, bool) {
	if s.adapter == nil {
		return nil, false
	}
	var ok bool
	value, err := retry.Do(s.ctx, s.retry, func() (string, error) {
		v, found, err := s.adapter.Get(s.ctx, persistKey(key))
		ok = found
		return v, err
	})
	if err != nil {
		s.logger.Error("can't get persisted key", "key", key, "error", &AdapterError{Op: "get", Key: key, Err: err})
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return []byte(value), true
}

// RemovePersist deletes the value stored under key. Failures are logged.
func (s *Store) RemovePersist(key string) {
	if s.adapter == nil {
		return
	}
	err := retry.Run(s.ctx, s.retry, func() error {
		return s.adapter.Delete(s.ctx, persistKey(key))
	})
	if err != nil {
		s.logger.Error("can't remove persisted key", "key", key, "error", &AdapterError{Op: "delete", Key: key, Err: err})
	}
}

// Persist writes every key of data that has an enabled policy, applying
// the policy's include/exclude projection to object values.
func (s *Store) Persist(data State) {
	if s.adapter == nil {
		return
	}
	for key, value := range data {
		policy, ok := s.policies[key]
		if !ok || !policy.Enabled {
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			s.logger.Error("can't persist key", "key", key, "error", &SerializationError{Key: key, Err: err})
			continue
		}
		raw, err = policy.project(raw)
		if err != nil {
			s.logger.Error("can't persist key", "key", key, "error", &SerializationError{Key: key, Err: err})
			continue
		}
		s.writeRaw(key, raw)
	}
}

// Flush performs a pending throttled persistence write immediately.
// It reports whether a write was pending.
func (s *Store) Flush() bool {
	return s.persistThrottled.Flush()
}

// LoadPersisted merges previously persisted values into the state.
//
// Object values are projected through their policy and deep-merged into
// the current value of their key; other values replace it. Each key is
// applied with a silent Set tagged LoadAction, so loading neither notifies
// subscribers nor schedules persistence.
func (s *Store) LoadPersisted() {
	for _, key := range s.policies.Keys() {
		policy := s.policies[key]
		if !policy.Enabled {
			continue
		}
		raw, ok := s.readRaw(key)
		if !ok {
			continue
		}
		raw, err := policy.project(raw)
		if err != nil {
			s.logger.Error("can't get persisted key", "key", key, "error", &SerializationError{Key: key, Err: err})
			continue
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			s.logger.Error("can't get persisted key", "key", key, "error", &SerializationError{Key: key, Err: err})
			continue
		}

		if loaded, isMap := value.(map[string]any); isMap {
			current, _ := asMap(s.Get()[key])
			value = deepMerge(cloneMap(current), loaded)
		}
		s.Set(State{key: value}, WithAction(LoadAction), WithSilent())
	}
}

// CleanFalsyPersistedKeys removes stored values of keys whose policy is
// disabled. When the adapter can list its keys, values stored under keys
// that have no policy at all are removed as well.
func (s *Store) CleanFalsyPersistedKeys() {
	if s.adapter == nil {
		return
	}
	for _, key := range s.policies.Keys() {
		if !s.policies[key].Enabled {
			s.RemovePersist(key)
		}
	}

	lister, ok := s.adapter.(KeyLister)
	if !ok {
		return
	}
	keys, err := lister.Keys(s.ctx)
	if err != nil {
		s.logger.Warn("can't list persisted keys", "error", err)
		return
	}
	for _, k := range keys {
		key, found := strings.CutPrefix(k, PersistPrefix)
		if !found {
			continue
		}
		if _, configured := s.policies[key]; !configured {
			s.RemovePersist(key)
		}
	}
}
