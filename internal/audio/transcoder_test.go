package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"narration-worker/internal/logger"
)

// writeWAV produces a minimal PCM file with an exact frame count.
func writeWAV(t *testing.T, path string, sampleRate uint32, channels, bitsPerSample uint16, frames uint32) {
	t.Helper()

	blockAlign := channels * bitsPerSample / 8
	dataSize := frames * uint32(blockAlign)

	buf := make([]byte, 0, 44+dataSize)
	buf = append(buf, []byte("RIFF")...)
	buf = binary.LittleEndian.AppendUint32(buf, 36+dataSize)
	buf = append(buf, []byte("WAVE")...)
	buf = append(buf, []byte("fmt ")...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1) // PCM
	buf = binary.LittleEndian.AppendUint16(buf, channels)
	buf = binary.LittleEndian.AppendUint32(buf, sampleRate)
	buf = binary.LittleEndian.AppendUint32(buf, sampleRate*uint32(blockAlign))
	buf = binary.LittleEndian.AppendUint16(buf, blockAlign)
	buf = binary.LittleEndian.AppendUint16(buf, bitsPerSample)
	buf = append(buf, []byte("data")...)
	buf = binary.LittleEndian.AppendUint32(buf, dataSize)
	buf = append(buf, make([]byte, dataSize)...)

	require.NoError(t, os.WriteFile(path, buf, 0o644))
}

type fakeRunner struct {
	results map[string]commandResult
	errs    map[string]error
	calls   []string
}

func (f *fakeRunner) Run(_ context.Context, name string, _ ...string) (commandResult, error) {
	f.calls = append(f.calls, name)
	return f.results[name], f.errs[name]
}

func newTestTranscoder(runner commandRunner) *Transcoder {
	return &Transcoder{runner: runner, log: logger.New()}
}

func TestDurationExactFromFrameCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	// 33075 frames at 22050 Hz is exactly 1.5 seconds.
	writeWAV(t, path, 22050, 1, 16, 33075)

	tr := NewTranscoder(logger.New())
	assert.Equal(t, 1.5, tr.Duration(path))
}

func TestDurationRoundsToTwoDecimals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	// 10000 frames at 30000 Hz is 0.3333... seconds.
	writeWAV(t, path, 30000, 1, 16, 10000)

	tr := NewTranscoder(logger.New())
	assert.Equal(t, 0.33, tr.Duration(path))
}

func TestDurationUnreadableFileReturnsZero(t *testing.T) {
	tr := NewTranscoder(logger.New())
	assert.Equal(t, 0.0, tr.Duration(filepath.Join(t.TempDir(), "missing.wav")))
}

func TestDurationRejectsNonWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.wav")
	require.NoError(t, os.WriteFile(path, []byte("ID3 not a wav at all......"), 0o644))

	tr := NewTranscoder(logger.New())
	assert.Equal(t, 0.0, tr.Duration(path))
}

func TestTranscodeFallsBackToLame(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]commandResult{},
		errs:    map[string]error{"ffmpeg": errors.New("ffmpeg: not found")},
	}
	tr := newTestTranscoder(runner)

	out, err := tr.Transcode(context.Background(), "/tmp/a.wav")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/a.mp3", out)
	assert.Equal(t, []string{"ffmpeg", "lame"}, runner.calls)
}

func TestTranscodeBothToolsMissing(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]commandResult{},
		errs: map[string]error{
			"ffmpeg": errors.New("ffmpeg: not found"),
			"lame":   errors.New("lame: not found"),
		},
	}
	tr := newTestTranscoder(runner)

	_, err := tr.Transcode(context.Background(), "/tmp/a.wav")
	var tcErr *TranscodeError
	require.ErrorAs(t, err, &tcErr)
	assert.Contains(t, tcErr.Tools, "ffmpeg")
	assert.Contains(t, tcErr.Tools, "lame")
	assert.NotEmpty(t, tcErr.Hint)
}

func TestCompressedDurationPrefersFfprobe(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]commandResult{"ffprobe": {Stdout: "92.456\n"}},
		errs:    map[string]error{},
	}
	tr := newTestTranscoder(runner)

	assert.Equal(t, 92.46, tr.CompressedDuration(context.Background(), "/tmp/a.mp3"))
	assert.Equal(t, []string{"ffprobe"}, runner.calls)
}

func TestCompressedDurationFallsBackToFfmpegStderr(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]commandResult{
			"ffmpeg": {Stderr: "Input #0, mp3, from '/tmp/a.mp3':\n  Duration: 00:01:23.45, start: 0.0, bitrate: 192 kb/s\n"},
		},
		errs: map[string]error{"ffprobe": errors.New("ffprobe: not found")},
	}
	tr := newTestTranscoder(runner)

	assert.Equal(t, 83.45, tr.CompressedDuration(context.Background(), "/tmp/a.mp3"))
}

func TestCompressedDurationBothFail(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]commandResult{},
		errs: map[string]error{
			"ffprobe": errors.New("ffprobe: not found"),
			"ffmpeg":  errors.New("ffmpeg: not found"),
		},
	}
	tr := newTestTranscoder(runner)

	assert.Equal(t, 0.0, tr.CompressedDuration(context.Background(), "/tmp/a.mp3"))
}

func TestParseDurationLine(t *testing.T) {
	seconds, ok := parseDurationLine("  Duration: 01:02:03.50, start: 0")
	require.True(t, ok)
	assert.Equal(t, 3723.5, seconds)

	_, ok = parseDurationLine("no duration here")
	assert.False(t, ok)
}
