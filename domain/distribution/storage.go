package distribution

// StorageInfo represents Google Drive storage quota information
type StorageInfo struct {
	TotalBytes     int64 // 0 when the account has no limit
	UsedBytes      int64
	AvailableBytes int64
}

// Unlimited reports whether the account has no storage limit
func (s StorageInfo) Unlimited() bool {
	return s.TotalBytes <= 0
}

// HasSpaceFor returns true if there's enough space for the given bytes.
// reclaimed counts bytes freed by replacing an existing file.
func (s StorageInfo) HasSpaceFor(bytes, reclaimed int64) bool {
	if s.Unlimited() {
		return true
	}
	return s.AvailableBytes+reclaimed >= bytes
}
