// Package steam brings a Steam Controller out of lizard mode over BLE.
//
// After link-level connection the controller is walked through
//
//	DiscoverService -> DiscoverCharacteristic -> ClearMappings -> DisableFactoryMode -> Done
//
// by a Machine owned by the Manager. Every step waits for the previous one's
// completion event. A failed step stalls the machine where it is: it is not
// retried and the link is not dropped. Start returns a Result that resolves when
// the controller is ready, has stalled, or was abandoned on disconnect.
package steam
