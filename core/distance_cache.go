package core

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
)

// FieldCache memoizes distance sets across tracker runs. Fields are
// expensive to compute and depend only on the geometry, so callers that
// re-localize many windows against the same network should share one cache.
//
// The cache is explicit and caller-owned; nothing in the core keeps hidden
// global state.
type FieldCache struct {
	mu      sync.RWMutex
	entries map[string]*DistanceSet
}

// NewFieldCache returns an empty cache.
func NewFieldCache() *FieldCache {
	return &FieldCache{entries: make(map[string]*DistanceSet)}
}

// GetOrCompute returns the cached distance set for the given inputs,
// computing and storing it on a miss. Concurrent callers may compute the
// same entry once each; the first store wins and later calls read it.
func (c *FieldCache) GetOrCompute(terrain *Terrain, stations *StationSet, opts DistanceOptions) (*DistanceSet, error) {
	key, err := cacheKey(terrain, stations, opts)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	set, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return set, nil
	}

	set, err = ComputeDistance(terrain, stations, opts)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if existing, ok := c.entries[key]; ok {
		set = existing
	} else {
		c.entries[key] = set
	}
	c.mu.Unlock()
	return set, nil
}

// Len returns the number of cached entries.
func (c *FieldCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// cacheKey fingerprints everything the distance computation depends on:
// terrain geometry and elevations, station positions, the topography flag
// and the AOI. Worker count and metrics do not change the result and are
// excluded.
func cacheKey(terrain *Terrain, stations *StationSet, opts DistanceOptions) (string, error) {
	if terrain == nil || stations == nil {
		return "", &ConfigurationError{Param: "cache", Reason: "terrain and stations are required"}
	}
	h := fnv.New64a()
	buf := make([]byte, 8)

	writeF := func(v float64) {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		h.Write(buf)
	}
	writeI := func(v int) {
		binary.LittleEndian.PutUint64(buf, uint64(v))
		h.Write(buf)
	}

	dem := terrain.Elevation
	writeI(dem.Rows)
	writeI(dem.Cols)
	writeF(dem.X0)
	writeF(dem.Y0)
	writeF(dem.DX)
	writeF(dem.DY)
	h.Write([]byte(dem.CRS))
	for _, v := range dem.Values {
		writeF(v)
	}

	writeI(stations.Len())
	for i := 0; i < stations.Len(); i++ {
		s := stations.At(i)
		h.Write([]byte(s.ID))
		writeF(s.X)
		writeF(s.Y)
	}

	flags := 0
	if opts.Topography {
		flags |= 1
	}
	if opts.Maps {
		flags |= 2
	}
	if opts.Matrix {
		flags |= 4
	}
	writeI(flags)
	if opts.AOI != nil {
		writeF(opts.AOI.XMin)
		writeF(opts.AOI.XMax)
		writeF(opts.AOI.YMin)
		writeF(opts.AOI.YMax)
	}

	return fmt.Sprintf("%016x", h.Sum64()), nil
}
