// Package prediction is the deterministic model-comparison engine.
//
// No model is trained. Each panel entry is a heuristic error profile whose
// expected relative error is scored from the series characteristics; the
// per-point predictions are then drawn from seeded streams derived from a
// fingerprint of the data. Re-running the engine on the same series with the
// same configuration reproduces every value bit for bit.
package prediction
