// Package analysis summarises optimized pulses.
//
//   - [PowerSpectrum]: one-sided spectrum of a pulse on a uniform grid
//   - [Fluence], [Area], [Peak]: time-domain figures of a pulse
//   - [Summarize]: all of the above for one control
//   - [UpdateNorms]: ∫Δε² dt per iteration, taken from a run history
package analysis
