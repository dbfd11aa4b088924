package util

import (
	"fmt"
	"math"
	"time"
)

// ByteSize is a byte count scaled for display.
type ByteSize struct {
	Num  float64
	Unit string
	Str  string
}

// FormatBytes scales b to bytes, KB or MB. Values of a gigabyte or more are
// still expressed in MB.
func FormatBytes(b int64) ByteSize {
	num := float64(b)
	unit := "bytes"
	if num > 1024 {
		num /= 1024
		unit = "KB"
	}
	if num > 1024 {
		num /= 1024
		unit = "MB"
	}
	return ByteSize{
		Num:  num,
		Unit: unit,
		Str:  fmt.Sprintf("%.0f %s", math.Round(num), unit),
	}
}

// DefaultFoldLen is the display length FoldLongText uses when none is given.
const DefaultFoldLen = 15

// FoldLongText shortens s to roughly maxLen runes by cutting out its middle.
// maxLen <= 0 selects DefaultFoldLen.
func FoldLongText(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultFoldLen
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	clip := maxLen * 6 / 10
	return string(r[:maxLen-clip]) + "..." + string(r[len(r)-clip:])
}

// TimestampLayout is the layout FormatTimestamp renders.
const TimestampLayout = "2006-01-02 15:04:05"

// FormatTimestamp renders epoch milliseconds in local time.
func FormatTimestamp(ms int64) string {
	return time.UnixMilli(ms).Local().Format(TimestampLayout)
}
