package kv

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// Memory is a mutex-guarded in-process Store. It backs engine tests and the
// storage "memory" mode, and mirrors Redis semantics closely enough that the
// engine cannot tell the difference: set reads come back sorted, scans walk
// a sorted snapshot, range indices accept negative offsets.
type Memory struct {
	mu sync.Mutex

	// guarded by mu
	hashes map[string]map[string]string
	sets   map[string]map[string]struct{}
	zsets  map[string]map[string]float64
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		hashes: make(map[string]map[string]string),
		sets:   make(map[string]map[string]struct{}),
		zsets:  make(map[string]map[string]float64),
	}
}

func (m *Memory) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.hashes[key]))
	for f, v := range m.hashes[key] {
		out[f] = v
	}
	return out, nil
}

func (m *Memory) HSet(ctx context.Context, key string, fields map[string]string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.hashes[key]
	if h == nil {
		h = make(map[string]string, len(fields))
		m.hashes[key] = h
	}
	var added int64
	for f, v := range fields {
		if _, ok := h[f]; !ok {
			added++
		}
		h[f] = v
	}
	return added, nil
}

func (m *Memory) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.hashes[key]
	if h == nil {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	var cur int64
	if raw, ok := h[field]; ok {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("kv: hash field %s.%s is not an integer", key, field)
		}
		cur = parsed
	}
	cur += delta
	h[field] = strconv.FormatInt(cur, 10)
	return cur, nil
}

func (m *Memory) HSetNX(ctx context.Context, key, field, value string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.hashes[key]
	if h == nil {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	if _, ok := h[field]; ok {
		return false, nil
	}
	h[field] = value
	return true, nil
}

func (m *Memory) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.hashes[key]
	var removed int64
	for _, f := range fields {
		if _, ok := h[f]; ok {
			delete(h, f)
			removed++
		}
	}
	if len(h) == 0 {
		delete(m.hashes, key)
	}
	return removed, nil
}

func (m *Memory) ZIncrBy(ctx context.Context, key string, delta float64, member string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	z := m.zsets[key]
	if z == nil {
		z = make(map[string]float64)
		m.zsets[key] = z
	}
	z[member] += delta
	return z[member], nil
}

func (m *Memory) ZRangeWithScores(ctx context.Context, key string, start, stop int64, reverse bool) ([]ScoredMember, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	members := make([]ScoredMember, 0, len(m.zsets[key]))
	for member, score := range m.zsets[key] {
		members = append(members, ScoredMember{Member: member, Score: score})
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].Score != members[j].Score {
			if reverse {
				return members[i].Score > members[j].Score
			}
			return members[i].Score < members[j].Score
		}
		if reverse {
			return members[i].Member > members[j].Member
		}
		return members[i].Member < members[j].Member
	})

	n := int64(len(members))
	if start < 0 {
		start = n + start
	}
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop {
		return nil, nil
	}
	out := make([]ScoredMember, stop-start+1)
	copy(out, members[start:stop+1])
	return out, nil
}

func (m *Memory) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sets[key]
	if s == nil {
		s = make(map[string]struct{}, len(members))
		m.sets[key] = s
	}
	var added int64
	for _, member := range members {
		if _, ok := s[member]; !ok {
			s[member] = struct{}{}
			added++
		}
	}
	return added, nil
}

func (m *Memory) SRem(ctx context.Context, key string, members ...string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sets[key]
	var removed int64
	for _, member := range members {
		if _, ok := s[member]; ok {
			delete(s, member)
			removed++
		}
	}
	if len(s) == 0 {
		delete(m.sets, key)
	}
	return removed, nil
}

func (m *Memory) SMembers(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedMembersLocked(key), nil
}

// SScan pages through a sorted snapshot of the set. The cursor is the offset
// into that ordering; mutations between pages may shift members the same way
// a live Redis scan can.
func (m *Memory) SScan(ctx context.Context, key string, cursor uint64, count int64) ([]string, uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if count <= 0 {
		count = 10
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	members := m.sortedMembersLocked(key)
	if cursor >= uint64(len(members)) {
		return nil, 0, nil
	}
	end := cursor + uint64(count)
	if end >= uint64(len(members)) {
		return members[cursor:], 0, nil
	}
	return members[cursor:end], end, nil
}

func (m *Memory) sortedMembersLocked(key string) []string {
	out := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		out = append(out, member)
	}
	sort.Strings(out)
	return out
}
