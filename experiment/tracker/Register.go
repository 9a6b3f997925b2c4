package tracker

// registeredTracker registers a set of names with some Tracker so that
// the Tracker tracks data with the registered names only.
// registeredTracker itself is a Tracker.
//
// The Track() and Save() methods of a registeredTracker call those of
// the embedded Tracker, except that Track() drops any scalar whose
// name was not registered.
//
// This may be useful if many components track data into the same
// sink but only some of the data should be saved. For example, a PPO
// reports its losses and learning rate each epoch, and registering
// only "policy_loss" with a Tracker saves the policy loss alone.
type registeredTracker struct {
	Tracker
	names map[string]struct{}
}

// Register returns a Tracker which forwards scalars with the given
// names to t and ignores all others.
//
// Note: the underlying concrete type of the registered Tracker is
// lost when registering names with a Tracker.
func Register(t Tracker, names ...string) Tracker {
	registered := make(map[string]struct{}, len(names))
	for _, name := range names {
		registered[name] = struct{}{}
	}
	return &registeredTracker{t, registered}
}

// Track calls Track() on the embedded Tracker if name is registered
func (r *registeredTracker) Track(name string, value float64) {
	if _, ok := r.names[name]; ok {
		r.Tracker.Track(name, value)
	}
}

// Multi returns a Tracker which tracks to and saves all of trackers
func Multi(trackers ...Tracker) Tracker {
	return multiTracker(trackers)
}

type multiTracker []Tracker

func (m multiTracker) Track(name string, value float64) {
	for _, t := range m {
		t.Track(name, value)
	}
}

// Save saves every Tracker, stopping at the first error
func (m multiTracker) Save() error {
	for _, t := range m {
		if err := t.Save(); err != nil {
			return err
		}
	}
	return nil
}
