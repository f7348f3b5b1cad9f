// Package fingerprint runs the access-control node on top of a sensor.
//
// A Service owns one sensor.Port. At rest it is in scan mode: a background
// loop captures, searches the library and reports each decision as a
// ScanEvent. Enroll, Delete and Empty are administrative modes. Only one
// can run at a time, each takes the sensor away from the scan loop while it
// runs, and all of them hand it back to scan when they finish, successfully
// or not.
//
// After every library mutation the service rereads the device's template
// index and reconciles the template.Registry with it, so the registry's key
// set always mirrors what the sensor holds.
//
// Usage:
//
//	svc := fingerprint.NewService(dev, leds, registry, sinks, fingerprint.Options{
//	    CaptureTimeout: 10 * time.Second,
//	    SlotPolicy:     fingerprint.SlotAuto,
//	})
//	if err := svc.Start(ctx); err != nil {
//	    return err
//	}
//	defer svc.Stop()
//
//	slot, err := svc.Enroll(ctx, fingerprint.AnySlot)
package fingerprint
