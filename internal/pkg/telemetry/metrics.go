package telemetry

// Span and attribute names used for instrumentation.
const (
	// Spans
	SpanSearchUpstream = "search.upstream"
	SpanLocationWrite  = "locations.write"
	SpanLocate         = "viewport.locate"

	// Attributes
	AttrSearchQuery   = "search.query"
	AttrSearchResults = "search.results"
	AttrLocationOp    = "location.op"
	AttrLocationCount = "location.count"
)
