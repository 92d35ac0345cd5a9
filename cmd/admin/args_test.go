package main

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUserIDs(t *testing.T) {
	ids, err := parseUserIDs(" 1, 2,,3 ")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	ids, err = parseUserIDs("")
	require.NoError(t, err)
	assert.Empty(t, ids)

	for _, bad := range []string{"abc", "1,x", "0", "-4"} {
		_, err := parseUserIDs(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseAsOf(t *testing.T) {
	now := time.Date(2024, 5, 31, 23, 0, 0, 0, time.Local)

	d, err := parseAsOf("", now)
	require.NoError(t, err)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.May, Day: 31}, d)

	d, err = parseAsOf("2024-02-29", now)
	require.NoError(t, err)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.February, Day: 29}, d)

	_, err = parseAsOf("31/05/2024", now)
	assert.Error(t, err)
}
