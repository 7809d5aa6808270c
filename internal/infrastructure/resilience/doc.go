/*
Package resilience provides a circuit breaker for remote archive hosts.

# Overview

The transfer client opens every HTTP archive download through a Breaker so a
host that keeps failing is rejected quickly instead of stalling each install
through a full retry cycle.

# Usage

	breaker := resilience.New("archive-host", resilience.Settings{
		MaxRequests: 3,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	err := breaker.Do(func() error {
		return open(ctx)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open

Cancelled requests are not counted as failures.
*/
package resilience
