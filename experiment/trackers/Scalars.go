// Package trackers implements concrete Trackers
package trackers

import (
	"encoding/gob"
	"fmt"
	"os"
	"sync"

	"github.com/samuelfneumann/goppo/experiment/tracker"
)

// Scalars tracks every named scalar in RAM and saves all of them to
// a gob file, which can be read back with tracker.LoadData.
type Scalars struct {
	mu       sync.Mutex
	data     tracker.Data
	filename string
}

// NewScalars creates and returns a new *Scalars Tracker which saves
// to filename
func NewScalars(filename string) *Scalars {
	return &Scalars{
		data:     make(tracker.Data),
		filename: filename,
	}
}

// Track appends value to the values tracked under name
func (s *Scalars) Track(name string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = append(s.data[name], value)
}

// Filename returns the file the data is saved to
func (s *Scalars) Filename() string { return s.filename }

// Data returns a copy of the data tracked so far
func (s *Scalars) Data() tracker.Data {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := make(tracker.Data, len(s.data))
	for name, values := range s.data {
		data[name] = append([]float64(nil), values...)
	}
	return data
}

// Save saves the data tracked by the Scalars Tracker to disk
func (s *Scalars) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Create(s.filename)
	if err != nil {
		return fmt.Errorf("save: could not open save file: %v", err)
	}
	defer file.Close()

	en := gob.NewEncoder(file)
	if err = en.Encode(s.data); err != nil {
		return fmt.Errorf("save: could not encode data: %v", err)
	}
	return nil
}
