package model

// Progress is the position of the last source log applied to a pool.
type Progress struct {
	BlockNumber uint64 `json:"block_number"`
	LogIndex    uint64 `json:"log_index"`
}

// Before reports whether p sorts strictly before other.
func (p Progress) Before(other Progress) bool {
	if p.BlockNumber != other.BlockNumber {
		return p.BlockNumber < other.BlockNumber
	}
	return p.LogIndex < other.LogIndex
}
