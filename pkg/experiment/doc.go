// Package experiment runs the following-feed investigation.
//
// A run fetches the algorithmic timeline as a baseline, then the same timeline
// once per parameter Variant, probes the dedicated feed/following/ endpoint,
// and finally reads the primary author's own posts directly. Steps run one at
// a time with a fixed pause between them; each fetch goes through the retry
// policy built from configuration.
package experiment
