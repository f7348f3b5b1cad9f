// Package sensor drives R30x/R50x/ZFM-family optical fingerprint modules.
//
// The Port interface is the vocabulary the rest of the node uses: capture,
// feature extraction into two template buffers, model fusion, storage,
// library search and index enumeration, plus the aura LED. Device is the
// serial implementation speaking the vendor packet protocol:
//
//	EF 01 | address(4) | type(1) | length(2) | payload | checksum(2)
//
// The checksum is the low 16 bits of the byte sum of type, length and
// payload. Acknowledgements carry a one-byte confirmation code which is
// mapped to the package sentinel errors; Classify groups those into the
// failure classes callers react to.
package sensor
