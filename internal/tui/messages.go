package tui

// loadDoneMsg reports the result of the initial session load.
type loadDoneMsg struct {
	err error
}

// opDoneMsg reports the result of a mutating session operation.
type opDoneMsg struct {
	err error
}

// saveDoneMsg reports the result of an explicit save.
type saveDoneMsg struct {
	err error
}
