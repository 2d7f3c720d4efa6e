package audio

import "math"

// InitialBitrate plans the first attempt's bitrate in kbps from the media duration and
// the size ceiling, discounted by the safety margin and clamped to [minKbps, maxKbps].
// A maxKbps of zero or less disables the upper clamp.
func InitialBitrate(durationSeconds, ceilingMB, margin float64, minKbps, maxKbps int) int {
	if !(durationSeconds > 0) || math.IsInf(durationSeconds, 0) {
		return clampKbps(math.Inf(1), minKbps, maxKbps)
	}
	rawBps := ceilingMB * 8 * BytesPerMB / durationSeconds
	return clampKbps(math.Floor(rawBps*margin/1000), minKbps, maxKbps)
}

// RescaleBitrate plans the next attempt after an output of actualMB overshot ceilingMB.
// The result never exceeds currentKbps and never drops below minKbps, so it is
// idempotent once the floor is reached.
func RescaleBitrate(currentKbps int, actualMB, ceilingMB, margin float64, minKbps int) int {
	if !(actualMB > 0) {
		return max(currentKbps, minKbps)
	}
	ratio := ceilingMB / actualMB
	next := math.Floor(float64(currentKbps) * ratio * margin)
	if next > float64(currentKbps) {
		next = float64(currentKbps)
	}
	return clampKbps(next, minKbps, 0)
}

// clampKbps converts v to an int bitrate inside [minKbps, maxKbps] without
// overflowing on huge or infinite values
func clampKbps(v float64, minKbps, maxKbps int) int {
	if maxKbps > 0 && maxKbps >= minKbps && v >= float64(maxKbps) {
		return maxKbps
	}
	if math.IsNaN(v) || v <= float64(minKbps) {
		return minKbps
	}
	if v >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}
