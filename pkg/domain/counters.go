package domain

// Counters are the per-classification totals of a run. Total always equals
// the sum of the four classifications.
type Counters struct {
	Halt       uint64 `json:"halt"`
	Loop       uint64 `json:"loop"`
	Undecided  uint64 `json:"undecided"`
	Irrelevant uint64 `json:"irrelevant"`
	Total      uint64 `json:"total"`
}

// Add counts one machine.
func (c *Counters) Add(cl Classification) {
	switch cl {
	case Halt:
		c.Halt++
	case Loop:
		c.Loop++
	case Undecided:
		c.Undecided++
	case Irrelevant:
		c.Irrelevant++
	default:
		return
	}
	c.Total++
}

// Merge adds other into c.
func (c *Counters) Merge(other Counters) {
	c.Halt += other.Halt
	c.Loop += other.Loop
	c.Undecided += other.Undecided
	c.Irrelevant += other.Irrelevant
	c.Total += other.Total
}

// Get returns the count of one classification.
func (c Counters) Get(cl Classification) uint64 {
	switch cl {
	case Halt:
		return c.Halt
	case Loop:
		return c.Loop
	case Undecided:
		return c.Undecided
	case Irrelevant:
		return c.Irrelevant
	}
	return 0
}

// Consistent reports whether Total matches the per-classification counts.
func (c Counters) Consistent() bool {
	return c.Halt+c.Loop+c.Undecided+c.Irrelevant == c.Total
}
