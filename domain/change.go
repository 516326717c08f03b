package domain

// ChangeKind tags a realtime change on the messages table.
type ChangeKind int

const (
	ChangeInsert ChangeKind = iota + 1
	ChangeUpdate
	ChangeDelete
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeInsert:
		return "INSERT"
	case ChangeUpdate:
		return "UPDATE"
	case ChangeDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// Change is a validated realtime event.
// For ChangeDelete, Row may only carry the ID: the backend sends the primary key of the old row.
type Change struct {
	Kind ChangeKind
	Row  Message
}
