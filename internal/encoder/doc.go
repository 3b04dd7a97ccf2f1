// Package encoder compiles conversion requests into ffmpeg argument lists.
//
// Everything here is pure: the Builder never touches the filesystem or
// spawns processes, so identical requests always produce identical
// invocations. Callers decide which enhancements apply (LUT present,
// watermark image readable) and hand the builder the resolved request.
//
// Filter graphs follow a fixed shape: the LUT stage is always first and the
// watermark stage is always last. Track maps follow data, video, audio order
// so downstream track indexes stay stable between runs.
package encoder
