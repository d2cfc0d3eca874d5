package utils

import "fmt"

var sizeUnits = []string{"KB", "MB", "GB", "TB"}

// PrettyPrintDiskSize renders size in bytes with two decimals in the largest
// binary unit that keeps the value at or above one.
func PrettyPrintDiskSize(size uint64) string {
	if size < 1024 {
		return fmt.Sprintf("%d B", size)
	}
	value := float64(size) / 1024
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", value, sizeUnits[unit])
}
