package coach

import (
	"errors"
	"sync"
)

var ErrBusy = errors.New("a coaching request is already in progress")

// Desk makes sure an athlete has at most one outstanding request per
// operation. There is no queue, a second caller is turned away.
type Desk struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func NewDesk() *Desk {
	return &Desk{
		busy: make(map[string]struct{}),
	}
}

// Acquire marks athleteID/op as busy. The returned release must be called
// once the request is done; calling it more than once is harmless.
func (d *Desk) Acquire(athleteID, op string) (func(), error) {
	key := athleteID + "||" + op

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.busy[key]; ok {
		return nil, ErrBusy
	}
	d.busy[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.busy, key)
			d.mu.Unlock()
		})
	}, nil
}

func (d *Desk) Busy(athleteID, op string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.busy[athleteID+"||"+op]
	return ok
}
