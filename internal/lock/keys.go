// Package lock provides per-key mutual exclusion for workflow operations.
//
// Two lockers implement domain.Locker: Local serializes within one process and
// Redis serializes across processes sharing a Redis instance. Both acquire keys
// in sorted order so that operations locking several keys cannot deadlock.
package lock

import (
	"fmt"
	"sort"
)

// EventKey guards an event's status and its registration counter.
func EventKey(eventID string) string {
	return fmt.Sprintf("event:%s", eventID)
}

// RegistrationKey guards one (event, user) registration.
func RegistrationKey(eventID, userID string) string {
	return fmt.Sprintf("registration:%s:%s", eventID, userID)
}

// ReportKey guards a report's status and revision flag.
func ReportKey(reportID string) string {
	return fmt.Sprintf("report:%s", reportID)
}

// normalize returns the distinct keys in acquisition order.
func normalize(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
