// Package tracker outlines Trackers, which record named scalar data
// during an experiment and save it once the experiment has finished
package tracker

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Tracker keeps track of named scalars generated during an experiment
// and saves the data after the experiment has finished. Every Tracker
// can be used as the summary sink of a PPO.
type Tracker interface {
	Track(name string, value float64)
	Save() error
}

// Data maps the name of each tracked scalar to its values in the order
// they were tracked
type Data map[string][]float64

// LoadData loads and returns the data saved by a Tracker which saves
// to a gob file
func LoadData(filename string) (Data, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("loadData: could not open data file: %v", err)
	}
	defer file.Close()

	var data Data
	dec := gob.NewDecoder(file)
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("loadData: could not decode data: %v", err)
	}
	return data, nil
}
