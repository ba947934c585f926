// Package batch runs the emotion sweep: one synthesis per emotion preset
// against a fixed provider and voice, in declaration order, with a pacing
// delay between calls. Results, a timestamped log and the saved clips are
// kept per run and can be exported as a plain-text report.
package batch
