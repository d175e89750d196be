// Package device provides block-device implementations consumed by the
// buffer cache: an in-memory device for tests and examples, a plain file
// device, an LZ4-compressed file device with per-block checksums, and
// wrappers for fault injection and transfer throttling.
//
// All devices address storage in fixed-size blocks. A block that has never
// been written reads back as zeroes, matching what a freshly zeroed disk
// would return.
package device
