package sequencer

// Request identifies the sound asset for one verse.
type Request struct {
	Collection int    // Chapter number
	Item       int    // Verse number within the chapter
	Voice      string // Reciter, passed through untouched
}

// Events receives the asynchronous outcome of one acquisition.
// A provider calls exactly one of Loaded or LoadFailed, then any number of
// PlaybackEnded/PlayFailed. Calls may come from any goroutine.
type Events interface {
	Loaded()
	LoadFailed(err error)
	PlaybackEnded()
	PlayFailed(err error)
}

// Handle is a sound resource owned by the sequencer.
type Handle interface {
	Play()
	Pause()
	Stop()
	Release()
}

// Provider produces sound resources. Acquire must not block on loading.
type Provider interface {
	Acquire(req Request, events Events) Handle
}
