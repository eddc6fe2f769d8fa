// Package suite runs many fixtures at once: it collects them from a
// manifest into a Registry, fans the runs out over a bounded worker pool,
// reports progress as Events, and remembers verdicts in an on-disk cache
// keyed by the exact inputs.
package suite
