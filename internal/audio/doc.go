// Package audio provides the playback engine: a state machine over a
// system audio output with load, pause, resume, stop, seek, rate and
// volume controls, plus periodic progress sampling. The production
// output uses oto/v3 with go-mp3 decoding; MockOutput serves tests.
package audio
