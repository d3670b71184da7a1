package rdb_test

import "time"

var testNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
