package batch

import (
	"encoding/binary"
	"fmt"
)

// decodeWAV extracts 16-bit little-endian mono PCM from a RIFF/WAVE file.
// Stereo input is downmixed by averaging channels. Compressed or non-16-bit
// content is rejected; conversion of other container formats is an external
// concern handled before upload.
func decodeWAV(data []byte) (pcm []byte, sampleRate int, err error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, &UnsupportedFormatError{Name: "audio", Reason: "not a RIFF/WAVE file"}
	}

	var (
		channels   int
		bitsPerSmp int
		dataChunk  []byte
		haveFmt    bool
	)

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			chunkSize = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, 0, &UnsupportedFormatError{Name: "wav", Reason: "truncated fmt chunk"}
			}
			format := binary.LittleEndian.Uint16(data[body:])
			if format != 1 {
				return nil, 0, &UnsupportedFormatError{Name: "wav", Reason: fmt.Sprintf("compressed format %d", format)}
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			bitsPerSmp = int(binary.LittleEndian.Uint16(data[body+14:]))
			haveFmt = true
		case "data":
			dataChunk = data[body : body+chunkSize]
		}

		// Chunks are word-aligned.
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if !haveFmt || dataChunk == nil {
		return nil, 0, &UnsupportedFormatError{Name: "wav", Reason: "missing fmt or data chunk"}
	}
	if bitsPerSmp != 16 {
		return nil, 0, &UnsupportedFormatError{Name: "wav", Reason: fmt.Sprintf("%d-bit samples", bitsPerSmp)}
	}

	switch channels {
	case 1:
		return dataChunk, sampleRate, nil
	case 2:
		mono := make([]byte, 0, len(dataChunk)/2)
		for i := 0; i+3 < len(dataChunk); i += 4 {
			left := int16(binary.LittleEndian.Uint16(dataChunk[i:]))
			right := int16(binary.LittleEndian.Uint16(dataChunk[i+2:]))
			mixed := int16((int32(left) + int32(right)) / 2)
			mono = binary.LittleEndian.AppendUint16(mono, uint16(mixed))
		}
		return mono, sampleRate, nil
	default:
		return nil, 0, &UnsupportedFormatError{Name: "wav", Reason: fmt.Sprintf("%d channels", channels)}
	}
}
