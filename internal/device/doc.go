// Package device holds the controller-side data model of the host: controller
// identity types, the authoritative controller record mirrored from the device
// registry, and the compact device table published over BLE.
//
// The package provides:
//   - The byte-exact compact record codec (little-endian, packed, 31 bytes)
//   - A fixed-capacity device table indexed by registry slot
//   - A minimal slot registry used when no external registry is wired in
//
// Nothing in this package locks. Callers run every operation on the single
// BLE event context.
package device
