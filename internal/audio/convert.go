// Package audio converts Telegram voice notes (Ogg Opus, occasionally Ogg
// Vorbis) into 16 kHz mono 16-bit PCM WAV files for speech recognition.
package audio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/jfreymuth/oggvorbis"
	"github.com/pekim/opus"
)

const (
	// TargetSampleRate is what speech engines expect.
	TargetSampleRate = 16000
	targetBitDepth   = 16
	wavFormatPCM     = 1
	opusSampleRate   = 48000
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrEmptyAudio        = errors.New("audio stream contains no samples")
)

// Options tunes the conversion.
type Options struct {
	MaxSeconds int // 0 = no limit
}

// ConvertOggToWav decodes the Ogg file at src and writes a WAV file to dst.
// dst is created or truncated; on error it may be left partially written.
func ConvertOggToWav(ctx context.Context, src, dst string, opt Options) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	pcm, err := DecodeOgg(in)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if opt.MaxSeconds > 0 && len(pcm) > opt.MaxSeconds*TargetSampleRate {
		pcm = pcm[:opt.MaxSeconds*TargetSampleRate]
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if err := WriteWAV(out, pcm); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// DecodeOgg returns mono float32 samples at TargetSampleRate.
func DecodeOgg(r io.ReadSeeker) ([]float32, error) {
	magic, _ := bufio.NewReader(r).Peek(4)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind: %w", err)
	}
	if string(magic) != "OggS" {
		return nil, fmt.Errorf("%w: missing Ogg signature", ErrUnsupportedFormat)
	}

	pcm, opusErr := decodeOpus(r)
	if opusErr == nil {
		return pcm, nil
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind: %w", err)
	}
	pcm, vorbisErr := decodeVorbis(r)
	if vorbisErr == nil {
		return pcm, nil
	}
	return nil, fmt.Errorf("%w: opus: %v; vorbis: %v", ErrUnsupportedFormat, opusErr, vorbisErr)
}

func decodeOpus(r io.ReadSeeker) ([]float32, error) {
	dec, err := opus.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	defer dec.Destroy()

	ch := dec.ChannelCount()
	if ch <= 0 {
		ch = 1
	}

	var (
		pcm []float32
		buf = make([]int16, opusSampleRate*ch/2)
	)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pcm = append(pcm, int16ToFloat32(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return finish(pcm, ch, opusSampleRate)
}

func decodeVorbis(r io.Reader) ([]float32, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, errors.New("invalid vorbis stream")
	}
	return finish(pcm, format.Channels, format.SampleRate)
}

func finish(pcm []float32, channels, sampleRate int) ([]float32, error) {
	pcm = downmix(pcm, channels)
	pcm = resampleLinear(pcm, sampleRate, TargetSampleRate)
	if len(pcm) == 0 {
		return nil, ErrEmptyAudio
	}
	return pcm, nil
}

// WriteWAV encodes mono samples at TargetSampleRate as 16-bit PCM.
func WriteWAV(w io.WriteSeeker, pcm []float32) error {
	enc := wav.NewEncoder(w, TargetSampleRate, targetBitDepth, 1, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: TargetSampleRate},
		Data:           float32ToInt16(pcm),
		SourceBitDepth: targetBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}
