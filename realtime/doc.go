// Package realtime drives an hfsm.State at a fixed tick rate.
//
// The engine itself never schedules anything; this package is a reference
// host loop. Inputs sent from other goroutines are batched and applied at the
// next tick boundary in submission order, then the root state is updated
// exactly once. All state machine calls happen on the tick goroutine, so the
// machine and its predicates need no locking of their own.
//
// # Example Usage
//
//	rt := realtime.NewRuntime(player, realtime.Config{
//		TickRate: 16667 * time.Microsecond, // 60 FPS
//		Logger:   slog.Default(),
//	})
//	if err := rt.Start(ctx); err != nil {
//		return err
//	}
//	defer rt.Stop()
//
//	rt.Send(func() { input.Moving = true })
//
// # Tick Phases
//
// Each tick runs:
//  1. Collect the batched inputs atomically
//  2. Sort them by sequence number
//  3. Apply them in order
//  4. Update the root state
//  5. Invoke Config.OnTick with the tick number
//
// Given the same sequence of Send calls between ticks the machine executes the
// same way regardless of goroutine scheduling.
//
// # Testing
//
// Step runs one tick synchronously without the ticker, which makes scripted
// scenarios reproducible:
//
//	rt := realtime.NewRuntime(root, realtime.Config{})
//	rt.Enter()
//	rt.Send(func() { bb.Set("grounded", false) })
//	rt.Step()
package realtime
