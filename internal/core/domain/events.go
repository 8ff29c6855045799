package domain

import "time"

// LocationOp names a write on the saved location collection.
type LocationOp string

const (
	LocationSaved    LocationOp = "saved"
	LocationUpdated  LocationOp = "updated"
	LocationDeleted  LocationOp = "deleted"
	LocationImported LocationOp = "imported"
)

// LocationEvent is published after every successful write so consumers
// holding a cached list know to refetch. Location never carries photos;
// consumers that need them refetch the entry.
type LocationEvent struct {
	Op       LocationOp     `json:"op"`
	ID       string         `json:"id"`
	Location *SavedLocation `json:"location,omitempty"`
	At       time.Time      `json:"at"`
}

// NewLocationEvent builds the event for a write on loc, which may be nil for
// deletes. Photos are left out to keep the message well below broker payload
// limits.
func NewLocationEvent(op LocationOp, id string, loc *SavedLocation, at time.Time) LocationEvent {
	e := LocationEvent{Op: op, ID: id, At: at}
	if loc != nil {
		summary := *loc
		summary.Photos = nil
		e.Location = &summary
	}
	return e
}
