package domain

// LoadingState is a reference-counted busy flag.
type LoadingState struct {
	PendingRequestCount int  `json:"pendingRequestCount"`
	IsBusy              bool `json:"isBusy"`
}

// Begin registers one more outstanding request.
func (s LoadingState) Begin() LoadingState {
	s.PendingRequestCount++
	s.IsBusy = true
	return s
}

// End releases one request. The count never drops below zero.
func (s LoadingState) End() LoadingState {
	if s.PendingRequestCount > 0 {
		s.PendingRequestCount--
	}
	s.IsBusy = s.PendingRequestCount > 0
	return s
}

// Reset clears all outstanding requests.
func (s LoadingState) Reset() LoadingState {
	return LoadingState{}
}
