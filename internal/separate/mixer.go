package separate

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// SumWAV writes a WAV file whose samples are the per-sample sum of the
// source files, clamped to the bit depth of the first source. All sources
// must share channel count and sample rate; shorter sources are treated as
// silence past their end.
func SumWAV(dest string, sources ...string) error {
	if len(sources) == 0 {
		return fmt.Errorf("sum wav: no sources")
	}

	var sum []int
	var format *audio.Format
	var bitDepth int

	for _, source := range sources {
		buffer, depth, err := readWAV(source)
		if err != nil {
			return err
		}
		if format == nil {
			format = buffer.Format
			bitDepth = depth
		} else {
			if buffer.Format.NumChannels != format.NumChannels || buffer.Format.SampleRate != format.SampleRate {
				return fmt.Errorf("sum wav: %s format mismatch (%d ch @ %d Hz, want %d ch @ %d Hz)",
					source, buffer.Format.NumChannels, buffer.Format.SampleRate, format.NumChannels, format.SampleRate)
			}
		}
		if len(buffer.Data) > len(sum) {
			grown := make([]int, len(buffer.Data))
			copy(grown, sum)
			sum = grown
		}
		for i, sample := range buffer.Data {
			sum[i] += sample
		}
	}

	limit := 1 << (bitDepth - 1)
	for i, sample := range sum {
		if sample > limit-1 {
			sum[i] = limit - 1
		} else if sample < -limit {
			sum[i] = -limit
		}
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("sum wav: create %s: %w", dest, err)
	}
	encoder := wav.NewEncoder(out, format.SampleRate, bitDepth, format.NumChannels, 1)
	writeErr := encoder.Write(&audio.IntBuffer{Data: sum, Format: format, SourceBitDepth: bitDepth})
	closeErr := encoder.Close()
	if err := out.Close(); writeErr == nil && closeErr == nil && err != nil {
		closeErr = err
	}
	if writeErr != nil {
		return fmt.Errorf("sum wav: write %s: %w", dest, writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("sum wav: finalize %s: %w", dest, closeErr)
	}
	return nil
}

func readWAV(path string) (*audio.IntBuffer, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("sum wav: open %s: %w", path, err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("sum wav: %s is not a valid wav file", path)
	}
	buffer, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("sum wav: decode %s: %w", path, err)
	}
	depth := int(decoder.BitDepth)
	if depth == 0 {
		depth = 16
	}
	return buffer, depth, nil
}
