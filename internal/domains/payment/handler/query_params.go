package handler

import (
	"fmt"
	"strconv"
)

func parsePositiveInt(raw, name string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

func errInvalidDate(name string) error {
	return fmt.Errorf("%s must be an RFC3339 timestamp", name)
}
