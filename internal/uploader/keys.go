package uploader

import "strings"

func trimSlashes(s string) string {
	return strings.Trim(strings.TrimSpace(s), "/")
}
