package domain

const (
	MinZoom     = 1
	MaxZoom     = 18
	DefaultZoom = 17
)

// Origin tells whether a map move came from the user or echoes a move the
// store itself asked the map to animate.
type Origin string

const (
	OriginUser         Origin = "user"
	OriginProgrammatic Origin = "programmatic"
)

// Valid reports whether o is a known origin. The zero value counts as user.
func (o Origin) Valid() bool {
	return o == "" || o == OriginUser || o == OriginProgrammatic
}

// Phase is the read-relevant macro state of the viewport.
type Phase string

const (
	PhaseUnset   Phase = "unset"
	PhaseLocated Phase = "located"
)

// ViewportState is the map's visible center, zoom level and permission gate.
type ViewportState struct {
	Center                    GeoPoint `json:"center"`
	Zoom                      int      `json:"zoom"`
	LocationPermissionGranted bool     `json:"locationPermissionGranted"`
}

// InitialViewport returns the state of a fresh installation.
func InitialViewport() ViewportState {
	return ViewportState{Center: DefaultCenter, Zoom: DefaultZoom}
}

// Phase derives the macro state from the permission flag.
func (s ViewportState) Phase() Phase {
	if s.LocationPermissionGranted {
		return PhaseLocated
	}
	return PhaseUnset
}

// ClampZoom bounds level to [MinZoom, MaxZoom].
func ClampZoom(level int) int {
	if level < MinZoom {
		return MinZoom
	}
	if level > MaxZoom {
		return MaxZoom
	}
	return level
}

// ActionType names a viewport transition.
type ActionType string

const (
	ActionSetCenter          ActionType = "setCenter"
	ActionSetZoom            ActionType = "setZoom"
	ActionSetCurrentLocation ActionType = "setCurrentLocation"
	ActionResetToDefault     ActionType = "resetToDefault"
)

// ViewportAction is a typed transition request. Build one with the
// constructors below rather than by hand.
type ViewportAction struct {
	Type   ActionType `json:"type"`
	Point  GeoPoint   `json:"point,omitempty"`
	Zoom   int        `json:"zoom,omitempty"`
	Origin Origin     `json:"origin,omitempty"`
}

func SetCenter(p GeoPoint, origin Origin) ViewportAction {
	return ViewportAction{Type: ActionSetCenter, Point: p, Origin: origin}
}

func SetZoom(level int, origin Origin) ViewportAction {
	return ViewportAction{Type: ActionSetZoom, Zoom: level, Origin: origin}
}

func SetCurrentLocation(p GeoPoint) ViewportAction {
	return ViewportAction{Type: ActionSetCurrentLocation, Point: p}
}

func ResetToDefault() ViewportAction {
	return ViewportAction{Type: ActionResetToDefault}
}

// ReduceViewport applies a to s and returns the next state.
// Programmatic moves are echoes of an animation the store requested and leave
// the state untouched. Nothing here ever clears the permission flag.
func ReduceViewport(s ViewportState, a ViewportAction) ViewportState {
	switch a.Type {
	case ActionSetCenter:
		if a.Origin == OriginProgrammatic {
			return s
		}
		s.Center = a.Point
	case ActionSetZoom:
		if a.Origin == OriginProgrammatic {
			return s
		}
		s.Zoom = ClampZoom(a.Zoom)
	case ActionSetCurrentLocation:
		s.Center = a.Point
		s.LocationPermissionGranted = true
	case ActionResetToDefault:
		s.Center = DefaultCenter
		s.Zoom = DefaultZoom
		s.LocationPermissionGranted = true
	}
	// Persisted state from older builds may carry an unclamped zoom.
	s.Zoom = ClampZoom(s.Zoom)
	return s
}
