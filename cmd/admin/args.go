package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// parseUserIDs reads a comma-separated list of positive user IDs.
func parseUserIDs(s string) ([]int64, error) {
	var ids []int64
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid user ID %q", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseAsOf defaults to the local date of now.
func parseAsOf(s string, now time.Time) (civil.Date, error) {
	if s == "" {
		return civil.DateOf(now), nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid --as-of %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}
