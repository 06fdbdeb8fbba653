package audio

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

func TestDecodeOgg_RejectsNonOgg(t *testing.T) {
	_, err := DecodeOgg(bytes.NewReader([]byte("RIFF....WAVEfmt ")))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDecodeOgg_RejectsCorruptOgg(t *testing.T) {
	data := append([]byte("OggS"), bytes.Repeat([]byte{0x01}, 64)...)
	_, err := DecodeOgg(bytes.NewReader(data))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

// readWAV decodes a converted file and checks the fixed output format.
func readWAV(t *testing.T, path string) []int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("output is not a valid wav")
	}
	if dec.SampleRate != TargetSampleRate || dec.NumChans != 1 || dec.BitDepth != 16 {
		t.Fatalf("unexpected format: rate=%d chans=%d depth=%d", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode wav: %v", err)
	}
	return buf.Data
}

func TestDecodeOgg_Vorbis(t *testing.T) {
	f, err := os.Open(filepath.Join("testdata", "tone_mono.ogg"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	// One second of 44.1 kHz mono.
	pcm, err := DecodeOgg(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d := len(pcm) - TargetSampleRate; d < -16 || d > 16 {
		t.Fatalf("expected about %d samples, got %d", TargetSampleRate, len(pcm))
	}
}

func TestConvertOggToWav_Vorbis(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.wav")
	if err := ConvertOggToWav(context.Background(), filepath.Join("testdata", "tone_mono.ogg"), dst, Options{}); err != nil {
		t.Fatalf("convert: %v", err)
	}

	data := readWAV(t, dst)
	if d := len(data) - TargetSampleRate; d < -16 || d > 16 {
		t.Fatalf("expected about %d samples, got %d", TargetSampleRate, len(data))
	}
	peak := 0
	for _, v := range data {
		if v < 0 {
			v = -v
		}
		peak = max(peak, v)
	}
	if peak == 0 {
		t.Fatal("converted audio is silent")
	}
}

func TestConvertOggToWav_StereoTruncated(t *testing.T) {
	// About six seconds of 44.1 kHz stereo, capped to two.
	dst := filepath.Join(t.TempDir(), "out.wav")
	src := filepath.Join("testdata", "voice_stereo.ogg")
	if err := ConvertOggToWav(context.Background(), src, dst, Options{MaxSeconds: 2}); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if data := readWAV(t, dst); len(data) != 2*TargetSampleRate {
		t.Fatalf("expected %d samples, got %d", 2*TargetSampleRate, len(data))
	}
}

func TestConvertOggToWav_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ConvertOggToWav(ctx, filepath.Join("testdata", "tone_mono.ogg"), filepath.Join(t.TempDir(), "out.wav"), Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestConvertOggToWav_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := ConvertOggToWav(context.Background(), filepath.Join(dir, "nope.ogg"), filepath.Join(dir, "out.wav"), Options{})
	if err == nil {
		t.Fatal("expected error for missing source")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "out.wav")); !os.IsNotExist(statErr) {
		t.Fatal("destination should not be created when source is missing")
	}
}

func TestWriteWAV_Header(t *testing.T) {
	pcm := make([]float32, TargetSampleRate/10)
	for i := range pcm {
		pcm[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / TargetSampleRate))
	}

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteWAV(f, pcm); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.Close()

	if data := readWAV(t, path); len(data) != len(pcm) {
		t.Fatalf("expected %d samples, got %d", len(pcm), len(data))
	}
}

func TestDownmix(t *testing.T) {
	got := downmix([]float32{1, 0, 0.5, 0.5, -1, 1}, 2)
	want := []float32{0.5, 0.5, 0}
	if len(got) != len(want) {
		t.Fatalf("expected %d frames, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestResampleLinear(t *testing.T) {
	in := make([]float32, opusSampleRate)
	out := resampleLinear(in, opusSampleRate, TargetSampleRate)
	if len(out) != TargetSampleRate {
		t.Fatalf("expected %d samples, got %d", TargetSampleRate, len(out))
	}
	if same := resampleLinear(in, 16000, 16000); len(same) != len(in) {
		t.Fatal("equal rates should return input unchanged")
	}
}

func TestFloat32ToInt16_Clamps(t *testing.T) {
	got := float32ToInt16([]float32{2, -2, 0})
	if got[0] != 32767 || got[1] != -32767 || got[2] != 0 {
		t.Fatalf("unexpected conversion %v", got)
	}
}
