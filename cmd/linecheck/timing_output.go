package main

import "time"

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
