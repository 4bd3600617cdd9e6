package shell

import "time"

// Maximum interval between two activations counted as a double activation.
const doubleClickInterval = 400 * time.Millisecond

// Counts consecutive activations of the same history entry.
type clickCounter struct {
	key   int
	last  time.Time
	count int
}

// Records an activation of the entry identified by key and returns the number
// of consecutive activations of it, including this one.
func (c *clickCounter) hit(key int, now time.Time) int {
	if c.count > 0 && key == c.key && now.Sub(c.last) <= doubleClickInterval {
		c.count++
	} else {
		c.count = 1
	}
	c.key, c.last = key, now
	return c.count
}
