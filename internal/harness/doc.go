// Package harness runs workout scenarios against the real runtime.
//
// A scenario names a statement script, a list of inputs (start, next,
// clock advances, raw events) and assertions over the final stack, the
// stored execution records and the action trace. Every run is
// deterministic:
//
//   - the clock is a testutil.ManualClock starting at testutil.Epoch
//   - block keys come from testutil.SequentialKeys ("b-1", "b-2", ...)
//   - records go to a fresh in-memory store
//   - metrics go to a fresh Prometheus registry
//
// so the same scenario always produces byte-identical snapshots, which
// golden.go compares against testdata/golden.
//
// Scenario file format:
//
//	name: fran
//	description: 21-15-9 thrusters and pullups
//	script: ../scripts/fran.yaml
//	steps:
//	  - action: start
//	  - action: advance
//	    duration: 1m
//	  - action: next
//	    times: 6
//	assertions:
//	  - type: status
//	    status: complete
//	  - type: record_count
//	    label: Thrusters
//	    count: 3
package harness
