package debounce

import (
	"fmt"
	"sync"
	"time"

	"github.com/kasbot/kasbot-server/errcode"

	lru "github.com/hashicorp/golang-lru"
)

const DefaultCapacity = 10000

// Clock returns the current time.
type Clock func() time.Time

// Debouncer rejects a command issued by a user before the interval of that
// command elapsed since the last accepted one.  The most recently active
// Capacity keys are remembered, older ones are forgotten and thus allowed.
type Debouncer struct {
	mtx sync.Mutex

	defaultInterval time.Duration
	intervals       map[string]time.Duration
	lastAccepted    *lru.Cache
	clock           Clock
}

// New returns a debouncer applying defaultInterval to every command without a
// specific interval.  A nil clock selects time.Now.
func New(defaultInterval time.Duration, intervals map[string]time.Duration, capacity int, clock Clock) (*Debouncer, error) {
	if defaultInterval < 0 {
		return nil, fmt.Errorf("%w: negative debounce interval", errcode.ErrConfiguration)
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	cache, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = time.Now
	}

	copied := make(map[string]time.Duration, len(intervals))
	for command, interval := range intervals {
		if interval < 0 {
			return nil, fmt.Errorf("%w: negative debounce interval for %v", errcode.ErrConfiguration, command)
		}
		copied[command] = interval
	}

	return &Debouncer{
		defaultInterval: defaultInterval,
		intervals:       copied,
		lastAccepted:    cache,
		clock:           clock,
	}, nil
}

func key(user, command string) string {
	return user + "|" + command
}

// Interval returns the interval applied to command.
func (d *Debouncer) Interval(command string) time.Duration {
	if interval, ok := d.intervals[command]; ok {
		return interval
	}
	return d.defaultInterval
}

// Allow records the command if it is accepted.  When rejected, the returned
// duration is the time left before the command is accepted again.
func (d *Debouncer) Allow(user, command string) (bool, time.Duration) {
	interval := d.Interval(command)
	if interval == 0 {
		return true, 0
	}

	k := key(user, command)
	now := d.clock()

	d.mtx.Lock()
	defer d.mtx.Unlock()

	if v, ok := d.lastAccepted.Get(k); ok {
		elapsed := now.Sub(v.(time.Time))
		if elapsed < interval {
			log.Tracef("Debounced %v for %v", command, user)
			return false, interval - elapsed
		}
	}
	d.lastAccepted.Add(k, now)
	return true, 0
}

// Reset forgets the last accepted command of user.
func (d *Debouncer) Reset(user, command string) {
	d.mtx.Lock()
	d.lastAccepted.Remove(key(user, command))
	d.mtx.Unlock()
}

// Len returns the number of remembered keys.
func (d *Debouncer) Len() int {
	return d.lastAccepted.Len()
}
