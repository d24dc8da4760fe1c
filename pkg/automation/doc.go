// ABOUTME: Parameter automation package
// ABOUTME: Provides stepped, eased ramps and a per-group collection of active ramps
// Package automation moves engine parameters smoothly over time.
//
// A Ramp interpolates a small vector of values over a fixed number of
// discrete steps. An Automator keeps one Ramp per Group and is advanced
// by a single ticker. Starting a ramp on a busy group replaces the old one;
// callers capture the live value as the new start so nothing jumps.
//
// Example:
//
//	auto := automation.NewAutomator()
//	ramp := automation.NewRamp([]float64{1}, []float64{0}, time.Second, 100, automation.SmoothStep, time.Now())
//	auto.Start(automation.GroupVolume, ramp, func(v []float64) { volume = v[0] }, nil)
//	for _, done := range auto.Tick(time.Now()) {
//	    done()
//	}
package automation
