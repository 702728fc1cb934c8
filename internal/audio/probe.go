// Package audio provides duration probing of rendered narration audio.
//
// Subtitle timing prefers the real audio duration over a speaking-rate
// estimate, so the prober inspects the rendered bytes directly: WAV files are
// read from their headers, MP3 files fall back to a coarse size-based
// estimate, and anything else reports an unknown duration.
package audio

import (
	"bytes"
	"encoding/binary"
)

// Container magic values.
var (
	riffMagic = []byte("RIFF")
	waveMagic = []byte("WAVE")
	id3Magic  = []byte("ID3")
)

// WAV chunk identifiers.
var (
	fmtChunkID  = []byte("fmt ")
	dataChunkID = []byte("data")
)

// Size estimate constants for MP3 audio without parsed frame headers.
// Speech-quality MP3 runs close to one megabyte per minute.
const (
	mp3BytesPerMinute = 1024 * 1024
	secondsPerMinute  = 60.0

	riffHeaderSize  = 12
	chunkHeaderSize = 8
	fmtByteRateOff  = 8
)

// Prober determines audio duration from raw bytes. It implements the
// core.DurationProber capability.
type Prober struct{}

// NewProber creates a duration prober.
func NewProber() *Prober {
	return &Prober{}
}

// DurationSeconds reports the duration of the audio in seconds. The boolean
// is false when the bytes are not a recognized audio container or the headers
// are too damaged to read.
func (p *Prober) DurationSeconds(audio []byte) (float64, bool) {
	switch {
	case isWAV(audio):
		return wavDuration(audio)
	case isMP3(audio):
		return estimateMP3Duration(audio), true
	default:
		return 0, false
	}
}

func isWAV(audio []byte) bool {
	if len(audio) < riffHeaderSize {
		return false
	}

	return bytes.Equal(audio[0:4], riffMagic) && bytes.Equal(audio[8:12], waveMagic)
}

func isMP3(audio []byte) bool {
	if len(audio) < 3 {
		return false
	}

	if bytes.Equal(audio[0:3], id3Magic) {
		return true
	}

	// A bare MPEG frame starts with an 11-bit sync word.
	return audio[0] == 0xFF && audio[1]&0xE0 == 0xE0
}

// wavDuration walks the RIFF chunk list for the fmt and data chunks and
// derives the duration as data size over byte rate.
func wavDuration(audio []byte) (float64, bool) {
	var (
		byteRate uint32
		dataSize uint32
	)

	offset := riffHeaderSize

	for offset+chunkHeaderSize <= len(audio) {
		chunkID := audio[offset : offset+4]
		chunkSize := binary.LittleEndian.Uint32(audio[offset+4 : offset+8])
		body := offset + chunkHeaderSize

		switch {
		case bytes.Equal(chunkID, fmtChunkID):
			if body+fmtByteRateOff+4 > len(audio) {
				return 0, false
			}

			byteRate = binary.LittleEndian.Uint32(
				audio[body+fmtByteRateOff : body+fmtByteRateOff+4],
			)
		case bytes.Equal(chunkID, dataChunkID):
			dataSize = chunkSize
		}

		// Chunks are word-aligned; odd sizes carry a pad byte.
		offset = body + int(chunkSize)
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if byteRate == 0 || dataSize == 0 {
		return 0, false
	}

	return float64(dataSize) / float64(byteRate), true
}

// estimateMP3Duration is a deliberately rough size-based estimate used when
// no frame parsing is available. It is good enough to clamp a speaking rate,
// not for playback seeking.
func estimateMP3Duration(audio []byte) float64 {
	return float64(len(audio)) / mp3BytesPerMinute * secondsPerMinute
}
