package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrettyPrintDiskSize(t *testing.T) {
	tests := []struct {
		size uint64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
		{2048 * 1024 * 1024 * 1024 * 1024, "2048.00 TB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PrettyPrintDiskSize(tt.size))
	}
}
