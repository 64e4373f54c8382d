// Package storage implements the C12 namespaced typed KV contract over
// an in-memory map, standing in for the target's opaque flash KV.
package storage

/*-------------------------------------------------------------
 *
 * Purpose:	Namespaced typed blob get/set/commit, per spec.md §4.12:
 *		typed helpers wrap an opaque blob primitive and assert
 *		exact size on read.
 *
 *--------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"
)

// Namespace tags the two persisted-state areas spec.md §6 names.
type Namespace uint8

const (
	NamespaceConfig   Namespace = 1
	NamespaceSettings Namespace = 2
)

type key struct {
	ns Namespace
	k  string
}

// KV is a namespaced typed key/value store. The zero value is not
// usable; build one with New. Set* calls are staged and become visible
// to Get* only once Commit applies them to the in-memory map, so callers
// batch set_* calls and issue a single commit the way the flash-backed
// target requires.
type KV struct {
	blobs   map[key][]byte
	pending map[key][]byte
}

// New returns an empty in-memory KV.
func New() *KV {
	return &KV{
		blobs:   make(map[key][]byte),
		pending: make(map[key][]byte),
	}
}

// GetBlob returns the raw bytes stored at ns/k, if any.
func (s *KV) GetBlob(ns Namespace, k string) ([]byte, bool) {
	v, ok := s.blobs[key{ns, k}]
	return v, ok
}

// SetBlob stages raw bytes at ns/k, visible to GetBlob only after
// Commit.
func (s *KV) SetBlob(ns Namespace, k string, value []byte) {
	cp := make([]byte, len(value))
	copy(cp, value)
	s.pending[key{ns, k}] = cp
}

// Commit applies all staged SetBlob calls.
func (s *KV) Commit() {
	for k, v := range s.pending {
		s.blobs[k] = v
	}
	s.pending = make(map[key][]byte)
}

func (s *KV) getSized(ns Namespace, k string, size int) ([]byte, error) {
	v, ok := s.GetBlob(ns, k)
	if !ok {
		return nil, fmt.Errorf("storage: %s/%s not set", nsName(ns), k)
	}
	if len(v) != size {
		return nil, fmt.Errorf("storage: %s/%s has size %d, want %d", nsName(ns), k, len(v), size)
	}
	return v, nil
}

func nsName(ns Namespace) string {
	switch ns {
	case NamespaceConfig:
		return "config"
	case NamespaceSettings:
		return "settings"
	default:
		return "unknown"
	}
}

// GetU8 reads an exactly-1-byte value.
func (s *KV) GetU8(ns Namespace, k string) (uint8, error) {
	v, err := s.getSized(ns, k, 1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// SetU8 stages a 1-byte value.
func (s *KV) SetU8(ns Namespace, k string, v uint8) {
	s.SetBlob(ns, k, []byte{v})
}

// GetU16 reads an exactly-2-byte little-endian value.
func (s *KV) GetU16(ns Namespace, k string) (uint16, error) {
	v, err := s.getSized(ns, k, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(v), nil
}

// SetU16 stages a 2-byte little-endian value.
func (s *KV) SetU16(ns Namespace, k string, v uint16) {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, v)
	s.SetBlob(ns, k, buf)
}

// GetU32 reads an exactly-4-byte little-endian value.
func (s *KV) GetU32(ns Namespace, k string) (uint32, error) {
	v, err := s.getSized(ns, k, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(v), nil
}

// SetU32 stages a 4-byte little-endian value.
func (s *KV) SetU32(ns Namespace, k string, v uint32) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	s.SetBlob(ns, k, buf)
}

// GetStr reads a string value, stored as raw UTF-8 bytes.
func (s *KV) GetStr(ns Namespace, k string) (string, error) {
	v, ok := s.GetBlob(ns, k)
	if !ok {
		return "", fmt.Errorf("storage: %s/%s not set", nsName(ns), k)
	}
	return string(v), nil
}

// SetStr stages a string value.
func (s *KV) SetStr(ns Namespace, k, v string) {
	s.SetBlob(ns, k, []byte(v))
}
