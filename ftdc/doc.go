// Package ftdc records per-cycle controller telemetry in a compact binary format and parses it
// back.
//
// Every control cycle the Logger asks each registered entry for its current values. An entry is a
// name, e.g. `cop_hrp_LeftFoot_target_cop`, and a function returning a short vector of floats.
// Readings are flattened into metrics named `<entry>.<component>`:
//
// Cycle1 = {time: 123, cop_target_cop: [0.01, 0], cop_target_force: [0, 0, 400]}
// Cycle2 = {time: 124, cop_target_cop: [0.02, 0], cop_target_force: [0, 0, 400]}
//
// Two properties of controller telemetry allow it to be stored compactly:
//   - The set of metrics only changes when a task is added or removed.
//   - Many values (targets, gains, flags) do not change between consecutive cycles.
//
// So metric names are only written when they change, and a value is only written when it differs
// from the previous cycle.
//
// Using a pseudo EBNF notation, a file is:
// FTDC = ftdc_doc*
//
// ftdc_doc = schema | metric
//
// schema =
//
//	schema_identifier : 0x01 (a full byte of value 1)
//	schema : <array of strings serialized as JSON, including a trailing \n(0xa)>
//
// metric_reading =
//
//	metric_identifier : 0b0 (a single bit of value 0)
//	diff_bit : bit* + byte alignment padding
//	time: int64 <nanoseconds since the 1970 epoch>
//	values : float64*
//
// A file always starts with a schema document:
//
// 0000 0001 ["cop_target_cop.0", "cop_target_cop.1", "cop_target_force.0", "cop_target_force.1", "cop_target_force.2"]\n
// 7       0
//
// A metric reading has one diff bit per metric of the current schema. The first byte holds the
// metric identifier bit followed by up to seven diff bits; each following byte holds up to eight.
// The last byte is padded. A diff bit is `1` when the value differs from the previous reading and
// one big-endian float64 follows the time for each set bit. Right after a schema document the
// previous values are taken to be `0`.
//
// The first cycle above has three non-zero values:
//
// 0010 0010 <64bit time> <64bit "cop_target_cop.0"> <64bit "cop_target_force.2">
// 7       0
//
// and the second cycle only changes the CoP x coordinate:
//
// 0000 0010 <64bit time> <64bit "cop_target_cop.0">
// 7       0
//
// The file format is not self-synchronizing: a parser must read documents in order and knows
// whether the next one is a schema or a reading from its first bit.
package ftdc
