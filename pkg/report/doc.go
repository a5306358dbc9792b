// Package report aggregates suite results into a run report, renders the
// text summary printed at the end of a run and persists results as JSON.
//
// A RunReport is a value. The runner folds each finished SuiteRun into it
// with With and closes it with Seal; nothing mutates a report in place.
// Render is a pure function of the report, so rendering the same report
// twice yields identical output.
package report
