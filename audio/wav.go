package audio

import (
	"fmt"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavBitDepth = 16

// WriteWAV encodes the buffer as 16-bit PCM WAV at the given path.
func (b *Buffer) WriteWAV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}

	enc := wav.NewEncoder(f, b.SampleRate, wavBitDepth, b.Channels, 1)

	data := make([]int, len(b.Samples))
	for i, s := range b.Samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(s * 32767)
	}

	buf := &gaudio.IntBuffer{
		Format: &gaudio.Format{
			NumChannels: b.Channels,
			SampleRate:  b.SampleRate,
		},
		Data:           data,
		SourceBitDepth: wavBitDepth,
	}

	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("finalize wav: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close wav: %w", err)
	}
	return nil
}
