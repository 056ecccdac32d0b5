package realtime

import "io"

// AudioSink receives decoded PCM16 chunks of the model's synthesised speech.
// The session only plays into the sink while playback is enabled, so muting
// never requires tearing down the connection.
type AudioSink interface {
	// Play delivers one PCM16 chunk. Implementations must not block for
	// longer than necessary; the session's receive loop calls this inline.
	Play(pcm []byte)
}

// NopSink discards all audio. The default sink for headless operation.
type NopSink struct{}

func (NopSink) Play([]byte) {}

// WriterSink plays audio into an io.Writer (a file, a pipe to an audio
// player, a network stream). Write errors are ignored: a broken playback
// path must never disturb the protocol session.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Play(pcm []byte) {
	if s.W != nil {
		_, _ = s.W.Write(pcm)
	}
}
