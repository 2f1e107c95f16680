// Package media handles decoding and preprocessing of uploaded recordings:
// RIFF/WAV parsing with PCM resampling on the audio side, and face-frame
// decode/normalisation on the image side.
package media

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Errors returned by DecodeWAV.
var (
	// ErrNotWAV indicates the payload does not carry a RIFF/WAVE header.
	ErrNotWAV = errors.New("media: not a RIFF/WAVE payload")

	// ErrUnsupportedFormat indicates the WAV container holds audio other than
	// uncompressed 16-bit PCM.
	ErrUnsupportedFormat = errors.New("media: unsupported WAV encoding (want 16-bit PCM)")
)

// Clip is a decoded audio recording.
type Clip struct {
	// PCM is raw 16-bit signed little-endian PCM data, interleaved when
	// Channels > 1.
	PCM []byte

	// SampleRate is the sample rate in Hz.
	SampleRate int

	// Channels is the interleaved channel count.
	Channels int
}

// Duration returns the playing time of the clip.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	bytesPerSec := c.SampleRate * c.Channels * 2
	return time.Duration(len(c.PCM)) * time.Second / time.Duration(bytesPerSec)
}

// DecodeWAV parses a RIFF/WAV container holding uncompressed 16-bit PCM.
// Chunks other than "fmt " and "data" are skipped.
func DecodeWAV(data []byte) (Clip, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Clip{}, ErrNotWAV
	}

	var (
		clip     Clip
		haveFmt  bool
		haveData bool
	)

	// Walk the chunk list.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if size < 0 || body+size > len(data) {
			// Truncated chunk; tolerate a short final data chunk.
			size = len(data) - body
			if size <= 0 {
				break
			}
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return Clip{}, fmt.Errorf("media: fmt chunk too short (%d bytes)", size)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			channels := int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			rate := int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits := binary.LittleEndian.Uint16(data[body+14 : body+16])
			if format != 1 || bits != 16 {
				return Clip{}, ErrUnsupportedFormat
			}
			if channels <= 0 || rate <= 0 {
				return Clip{}, fmt.Errorf("media: invalid WAV format: %d channels at %d Hz", channels, rate)
			}
			clip.Channels = channels
			clip.SampleRate = rate
			haveFmt = true

		case "data":
			clip.PCM = data[body : body+size]
			haveData = true
		}

		// Chunks are word-aligned.
		off = body + size
		if size%2 == 1 {
			off++
		}
	}

	if !haveFmt || !haveData {
		return Clip{}, fmt.Errorf("media: incomplete WAV container (fmt=%v data=%v)", haveFmt, haveData)
	}
	return clip, nil
}

// NormalizeClip converts a clip to mono PCM at the given sample rate,
// downmixing stereo first and then resampling with linear interpolation.
// Clips already in the target format are returned unchanged.
func NormalizeClip(c Clip, targetRate int) Clip {
	pcm := c.PCM
	if c.Channels == 2 {
		pcm = stereoToMono(pcm)
	}
	if c.SampleRate != targetRate {
		pcm = resampleMono16(pcm, c.SampleRate, targetRate)
	}
	return Clip{PCM: pcm, SampleRate: targetRate, Channels: 1}
}

// stereoToMono averages L+R per stereo frame (4 bytes) to produce mono output.
// Uses int32 arithmetic to prevent overflow and clamps to int16 range.
func stereoToMono(pcm []byte) []byte {
	// Each stereo frame is 4 bytes (2 bytes L + 2 bytes R).
	frames := len(pcm) / 4
	out := make([]byte, frames*2)
	for i := range frames {
		lSample := int32(int16(pcm[i*4]) | int16(pcm[i*4+1])<<8)
		rSample := int32(int16(pcm[i*4+2]) | int16(pcm[i*4+3])<<8)
		avg := (lSample + rSample) / 2

		// Clamp to int16 range.
		if avg > 32767 {
			avg = 32767
		} else if avg < -32768 {
			avg = -32768
		}

		out[i*2] = byte(avg)
		out[i*2+1] = byte(avg >> 8)
	}
	return out
}

// resampleMono16 resamples 16-bit mono PCM from srcRate to dstRate using linear
// interpolation. The input must be little-endian int16 samples. If srcRate ==
// dstRate, the input is returned unchanged.
func resampleMono16(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 {
		return pcm
	}
	if srcRate == dstRate || len(pcm) < 2 {
		return pcm
	}
	srcSamples := len(pcm) / 2
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}

	out := make([]byte, dstSamples*2)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstSamples {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := int16(pcm[srcIdx*2]) | int16(pcm[srcIdx*2+1])<<8
		var s1 int16
		if srcIdx+1 < srcSamples {
			s1 = int16(pcm[(srcIdx+1)*2]) | int16(pcm[(srcIdx+1)*2+1])<<8
		} else {
			s1 = s0
		}

		interpolated := int16(float64(s0)*(1-frac) + float64(s1)*frac)
		out[i*2] = byte(interpolated)
		out[i*2+1] = byte(interpolated >> 8)
	}
	return out
}
