// Package report turns experiment results into the two run artifacts: a JSON
// record and a plain-text report. Build and Render are pure; Write is the only
// function that touches the filesystem.
package report
