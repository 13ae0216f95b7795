// Package audio provides WAV inspection and archival of request artifacts.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrNotWAV is returned for files without a RIFF/WAVE header.
	ErrNotWAV = errors.New("not a valid WAV file")
	// ErrNoData is returned when the file has no data chunk or a zero byte rate.
	ErrNoData = errors.New("WAV file has no audio data")
)

// Info describes the PCM format of a WAV file.
type Info struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	BitsPerSample uint16
	DataBytes     uint32
}

// Duration returns the audio length in seconds, computed from the decoded
// sample count and sample rate. File-size heuristics are deliberately not
// used; they break across containers and bit depths.
func (i Info) Duration() float64 {
	bytesPerSecond := uint64(i.SampleRate) * uint64(i.NumChannels) * uint64(i.BitsPerSample) / 8
	if bytesPerSecond == 0 {
		return 0
	}
	return float64(i.DataBytes) / float64(bytesPerSecond)
}

// Duration opens a WAV file and returns its length in seconds.
func Duration(path string) (float64, error) {
	info, err := Probe(path)
	if err != nil {
		return 0, err
	}
	d := info.Duration()
	if d == 0 {
		return 0, ErrNoData
	}
	return d, nil
}

// Probe reads the RIFF header and chunk list of a WAV file.
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()
	return probe(f)
}

func probe(r io.ReadSeeker) (Info, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return Info{}, ErrNotWAV
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return Info{}, ErrNotWAV
	}

	var info Info
	sawFmt := false

	// Walk chunks until both fmt and data are found.
	for {
		var header [8]byte
		if _, err := io.ReadFull(r, header[:]); err != nil {
			break
		}
		chunkID := string(header[0:4])
		chunkSize := binary.LittleEndian.Uint32(header[4:8])

		switch chunkID {
		case "fmt ":
			var fmtChunk [16]byte
			if _, err := io.ReadFull(r, fmtChunk[:]); err != nil {
				return Info{}, fmt.Errorf("read fmt chunk: %w", err)
			}
			info.AudioFormat = binary.LittleEndian.Uint16(fmtChunk[0:2])
			info.NumChannels = binary.LittleEndian.Uint16(fmtChunk[2:4])
			info.SampleRate = binary.LittleEndian.Uint32(fmtChunk[4:8])
			info.BitsPerSample = binary.LittleEndian.Uint16(fmtChunk[14:16])
			sawFmt = true
			if chunkSize > 16 {
				if _, err := r.Seek(int64(chunkSize-16), io.SeekCurrent); err != nil {
					return Info{}, err
				}
			}
		case "data":
			info.DataBytes = chunkSize
			if sawFmt {
				return info, nil
			}
			if _, err := r.Seek(int64(chunkSize), io.SeekCurrent); err != nil {
				return Info{}, err
			}
		default:
			// Chunks are word-aligned; odd sizes carry a pad byte.
			skip := int64(chunkSize)
			if chunkSize%2 == 1 {
				skip++
			}
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return Info{}, err
			}
		}
	}

	if !sawFmt || info.DataBytes == 0 {
		return Info{}, ErrNoData
	}
	return info, nil
}
