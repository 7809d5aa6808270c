// Package transfer opens archive byte streams for the install pipeline.
//
// A Source is either a local file sitting beside the app descriptor or an
// HTTP URL. HTTP requests go through resty on a retrying transport, paced
// by a rate limiter and guarded by a circuit breaker so a dead archive
// host fails installs fast instead of tying up sessions.
package transfer
