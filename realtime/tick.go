package realtime

// processTick runs one complete tick. It must only be called from the goroutine
// that owns the root state.
func (rt *Runtime) processTick() {
	inputs := rt.collectInputs()
	sortInputs(inputs)
	for _, in := range inputs {
		if in.Apply != nil {
			in.Apply()
		}
	}

	rt.root.Update()

	rt.mu.Lock()
	rt.tickNum++
	n := rt.tickNum
	rt.mu.Unlock()

	if rt.onTick != nil {
		rt.onTick(n)
	}
}

// collectInputs atomically retrieves and clears the input batch.
func (rt *Runtime) collectInputs() []Input {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	inputs := rt.batch
	rt.batch = make([]Input, 0, cap(rt.batch))
	return inputs
}
