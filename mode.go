package dirshelf

// Mode selects when a Mapping persists values.
type Mode uint8

const (
	// WriteThrough persists every Set before it returns.
	WriteThrough Mode = iota
	// WriteBack caches writes and defers persistence until Sync or Close.
	WriteBack
)

func (m Mode) String() string {
	switch m {
	case WriteThrough:
		return "write-through"
	case WriteBack:
		return "write-back"
	default:
		return "unknown"
	}
}
