package handler

import "strconv"

func atoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return def
	}
	return i
}
