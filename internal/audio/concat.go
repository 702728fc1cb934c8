package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Static errors.
var (
	// ErrNoSegments indicates a concatenation call without input audio.
	ErrNoSegments = errors.New("no audio segments to concatenate")
	// ErrMalformedWAV indicates a WAV segment whose chunk layout cannot be
	// read.
	ErrMalformedWAV = errors.New("malformed WAV segment")
)

// Concat joins rendered audio segments into one stream. WAV segments are
// merged properly: the sample data of every segment is appended under the
// first segment's format header. Non-WAV segments (MP3 streams concatenate
// frame-wise) are joined byte-wise, matching how chunked speech backends
// deliver them.
func Concat(segments [][]byte) ([]byte, error) {
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}

	if len(segments) == 1 {
		return segments[0], nil
	}

	if isWAV(segments[0]) {
		return concatWAV(segments)
	}

	return bytes.Join(segments, nil), nil
}

// concatWAV rebuilds a single RIFF/WAVE file from the segments' sample data.
// All segments must share the first segment's sample format; speech engines
// render every chunk with the same settings, so this holds in practice.
func concatWAV(segments [][]byte) ([]byte, error) {
	firstFmt, err := wavChunk(segments[0], fmtChunkID)
	if err != nil {
		return nil, err
	}

	var samples bytes.Buffer

	for i, segment := range segments {
		data, dataErr := wavChunk(segment, dataChunkID)
		if dataErr != nil {
			return nil, fmt.Errorf("segment %d: %w", i, dataErr)
		}

		samples.Write(data)
	}

	return buildWAVFile(firstFmt, samples.Bytes()), nil
}

// wavChunk returns the body of the named chunk inside a WAV file.
func wavChunk(audio []byte, chunkID []byte) ([]byte, error) {
	if !isWAV(audio) {
		return nil, fmt.Errorf("%w: missing RIFF header", ErrMalformedWAV)
	}

	offset := riffHeaderSize

	for offset+chunkHeaderSize <= len(audio) {
		id := audio[offset : offset+4]
		size := binary.LittleEndian.Uint32(audio[offset+4 : offset+8])
		body := offset + chunkHeaderSize

		end := body + int(size)
		if end > len(audio) {
			end = len(audio)
		}

		if bytes.Equal(id, chunkID) {
			return audio[body:end], nil
		}

		offset = body + int(size)
		if size%2 == 1 {
			offset++
		}
	}

	return nil, fmt.Errorf("%w: chunk %q missing", ErrMalformedWAV, chunkID)
}

func buildWAVFile(fmtBody, samples []byte) []byte {
	var out bytes.Buffer

	riffSize := 4 + chunkHeaderSize + len(fmtBody) + chunkHeaderSize + len(samples)

	out.WriteString("RIFF")
	_ = binary.Write(&out, binary.LittleEndian, uint32(riffSize))
	out.WriteString("WAVE")

	out.Write(fmtChunkID)
	_ = binary.Write(&out, binary.LittleEndian, uint32(len(fmtBody)))
	out.Write(fmtBody)

	out.Write(dataChunkID)
	_ = binary.Write(&out, binary.LittleEndian, uint32(len(samples)))
	out.Write(samples)

	return out.Bytes()
}
