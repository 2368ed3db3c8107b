package snapshot

// Snapshot proposal states accepted by the hub.
const (
	StatePending = "pending"
	StateActive  = "active"
	StateClosed  = "closed"
	StateAll     = "all"
)

type Space struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Proposal struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Body    string   `json:"body"`
	Choices []string `json:"choices"`
	Start   int64    `json:"start"`
	End     int64    `json:"end"`
	State   string   `json:"state"`
	Link    string   `json:"link"`
	Space   Space    `json:"space"`
}

func ValidState(s string) bool {
	switch s {
	case StatePending, StateActive, StateClosed, StateAll:
		return true
	default:
		return false
	}
}
