package core

import "fmt"

// Station is a ground-motion sensor at a known planar position. Coordinates
// must be expressed in the same CRS as the terrain; reprojection happens
// outside the core (see CoordinateConverter).
type Station struct {
	ID string
	X  float64
	Y  float64
}

// StationSet is an ordered, immutable collection of stations with unique IDs.
type StationSet struct {
	stations []Station
	index    map[string]int
}

// NewStationSet builds a StationSet, rejecting empty and duplicate IDs.
func NewStationSet(stations ...Station) (*StationSet, error) {
	if len(stations) == 0 {
		return nil, &ConfigurationError{Param: "stations", Reason: "at least one station is required"}
	}
	set := &StationSet{
		stations: make([]Station, len(stations)),
		index:    make(map[string]int, len(stations)),
	}
	copy(set.stations, stations)
	for i, s := range set.stations {
		if s.ID == "" {
			return nil, &ConfigurationError{Param: "stations", Reason: fmt.Sprintf("station %d has an empty ID", i)}
		}
		if _, dup := set.index[s.ID]; dup {
			return nil, &ConfigurationError{Param: "stations", Reason: fmt.Sprintf("duplicate station ID %q", s.ID)}
		}
		set.index[s.ID] = i
	}
	return set, nil
}

// Len returns the number of stations.
func (s *StationSet) Len() int { return len(s.stations) }

// At returns the i-th station in insertion order.
func (s *StationSet) At(i int) Station { return s.stations[i] }

// IDs returns the station IDs in insertion order.
func (s *StationSet) IDs() []string {
	ids := make([]string, len(s.stations))
	for i, st := range s.stations {
		ids[i] = st.ID
	}
	return ids
}

// Validate checks that every station lies inside ext, returning an
// OutOfBoundsError naming the first offender.
func (s *StationSet) Validate(ext Extent) error {
	for _, st := range s.stations {
		if !ext.Contains(st.X, st.Y) {
			return &OutOfBoundsError{StationID: st.ID, X: st.X, Y: st.Y, Extent: ext}
		}
	}
	return nil
}
