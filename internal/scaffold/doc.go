// Package scaffold writes starter document descriptions from embedded
// templates. It powers the "manifestgen init" command: the device set lays out
// device tree, vendor tree and kernel sections for one device, the minimal set
// an empty document to fill in by hand.
package scaffold
