package sizefmt

import "math"

const bytesPerMB = 1024 * 1024

// BytesToMB converts bytes to mebibytes rounded to two decimals.
func BytesToMB(n int64) float64 {
	return math.Round(float64(n)/bytesPerMB*100) / 100
}

func MBToBytes(mb float64) int64 {
	return int64(mb * bytesPerMB)
}
