// Package reaper aborts upload sessions abandoned mid-flight, so
// provider-side partial uploads do not accumulate storage cost forever.
//
// A sweep lists sessions with no activity beyond the idle window and
// runs the coordinator's Abort on each: the same conditional state
// transition a client abort takes, so a sweep can never clobber a
// session that a live client is concurrently completing. Sessions lost
// to such a race are skipped silently; abort failures are logged and
// left for the next sweep. The loop form runs on a ticker inside the
// service; RunOnce backs the one-shot operational command.
package reaper
