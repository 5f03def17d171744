package realtime

import "sort"

// Input is a host mutation queued for the next tick.
type Input struct {
	Apply       func()
	SequenceNum uint64
	Priority    int
}

// sortInputs orders inputs deterministically: higher priority first, then
// submission order.
func sortInputs(inputs []Input) {
	sort.SliceStable(inputs, func(i, j int) bool {
		if inputs[i].Priority != inputs[j].Priority {
			return inputs[i].Priority > inputs[j].Priority
		}
		return inputs[i].SequenceNum < inputs[j].SequenceNum
	})
}
