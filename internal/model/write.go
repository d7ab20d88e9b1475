package model

// WriteResult is what an upsert did to the stored row.
type WriteResult int

const (
	WriteUnchanged WriteResult = iota
	WriteInserted
	WriteUpdated
)

func (w WriteResult) String() string {
	switch w {
	case WriteInserted:
		return "inserted"
	case WriteUpdated:
		return "updated"
	default:
		return "unchanged"
	}
}
