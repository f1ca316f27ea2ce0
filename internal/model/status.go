package model

// Status is the outcome code of the last placement
type Status uint8

const (
	StatusSuccess           Status = 0
	StatusInvalidBuilding   Status = 1
	StatusTileTaken         Status = 2
	StatusInsufficientFunds Status = 3
)

// String returns the wire name of the status
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusInvalidBuilding:
		return "INVALID_BUILDING"
	case StatusTileTaken:
		return "TILE_TAKEN"
	case StatusInsufficientFunds:
		return "INSUFFICIENT_FUNDS"
	default:
		return "UNKNOWN"
	}
}
