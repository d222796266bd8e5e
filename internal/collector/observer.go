package collector

// EventType names a sync progress event.
type EventType string

const (
	EventSyncStarted  EventType = "sync_started"
	EventMatchSynced  EventType = "match_synced"
	EventMatchFailed  EventType = "match_failed"
	EventRateLimited  EventType = "rate_limited"
	EventSyncFinished EventType = "sync_finished"
)

// Event is one progress notification from a running sync.
type Event struct {
	Type    EventType   `json:"type"`
	GroupID string      `json:"groupId"`
	RunID   string      `json:"runId"`
	MatchID string      `json:"matchId,omitempty"`
	Players int         `json:"players,omitempty"`
	Total   int         `json:"total,omitempty"`
	Result  *SyncResult `json:"result,omitempty"`
	Err     string      `json:"error,omitempty"`
}

// Observer receives progress events. OnSyncEvent is called from worker
// goroutines and must not block.
type Observer interface {
	OnSyncEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnSyncEvent(e Event) { f(e) }

type nopObserver struct{}

func (nopObserver) OnSyncEvent(Event) {}
