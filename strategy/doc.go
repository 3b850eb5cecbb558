// Package strategy provides built-in offset strategies for placing synthetic
// submissions.
//
// When the number of submissions is not a multiple of the group size, the
// partitioner inserts synthetic submissions ("bots") into the ordered
// sequence. An offset strategy decides where each one goes:
//
//   - RoundRobin: cycles over the group-aligned offsets 0, 4, 8, ... below
//     n-4 (default). For small inputs this degenerates to offset 0.
//   - FrontOnly: always inserts at the front.
//
// Custom strategies can be supplied as a types.OffsetStrategy.
package strategy
