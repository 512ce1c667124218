/*
Package netLayer contains the transport-level plumbing of knocker: dial
error classification, the single-direction relay loop, and address helpers.

Layering is utils -> netLayer -> proxy / child -> main.
*/
package netLayer

import "time"

// DialTimeout bounds how long we wait for the destination to accept. The
// destination is always local-ish (the supervised child), so a long dial
// means it is simply not up.
const DialTimeout = time.Second * 4
