package daemon

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// findMountPoint looks device up in a mounts(5) table.
func findMountPoint(table, device string) (string, bool, error) {
	f, err := os.Open(table)
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		if unescapeMountField(fields[0]) == device {
			return unescapeMountField(fields[1]), true, nil
		}
	}
	return "", false, scanner.Err()
}

// unescapeMountField decodes the octal escapes (\040 for space) the kernel
// writes for whitespace and backslashes.
func unescapeMountField(value string) string {
	if !strings.Contains(value, `\`) {
		return value
	}
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		if value[i] == '\\' && i+4 <= len(value) {
			if n, err := strconv.ParseUint(value[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(n))
				i += 3
				continue
			}
		}
		b.WriteByte(value[i])
	}
	return b.String()
}
