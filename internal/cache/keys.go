package cache

import "fmt"

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}

// LastEvalRunKey marks when the last evaluation run finished. Advisory only.
func LastEvalRunKey() string {
	return "alerting:last_run"
}
