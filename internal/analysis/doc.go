// Package analysis inspects recorded controller runs.
//
// Pose samples arrive at irregular times, so traces are first resampled
// onto a uniform grid by linear interpolation. The power spectrum of the
// tracking error then exposes limit cycles: a well tuned loop shows its
// energy near DC, while an over-aggressive one shows a clear peak at its
// oscillation frequency.
package analysis
