// Package audio converts synthesized WAV artifacts to the MP3 distribution
// format and measures playable duration for either format.
package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"narration-worker/internal/logger"
)

// TranscodeError reports that no usable conversion tool was found.
type TranscodeError struct {
	Tools []string
	Hint  string
	Err   error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("transcode failed: none of %s usable (%s): %v",
		strings.Join(e.Tools, ", "), e.Hint, e.Err)
}

func (e *TranscodeError) Unwrap() error { return e.Err }

// commandResult captures one external tool invocation.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
	}
	return result, err
}

// Transcoder converts raw WAV artifacts and computes durations.
type Transcoder struct {
	runner commandRunner
	log    *logger.Logger
}

func NewTranscoder(log *logger.Logger) *Transcoder {
	return &Transcoder{runner: execRunner{}, log: log}
}

// Duration computes the playable seconds of a WAV artifact from its frame
// count and sample rate, rounded to two decimals. Read failures log and
// return 0; they never fail the caller.
func (t *Transcoder) Duration(path string) float64 {
	seconds, err := wavDuration(path)
	if err != nil {
		t.log.WithComponent("audio").WithError(err).WithField("path", path).
			Error("failed to read wav duration")
		return 0
	}
	return seconds
}

// Transcode converts a WAV artifact to MP3 next to the original. ffmpeg is
// preferred; lame is the fallback when ffmpeg is unavailable. When neither
// works the caller gets a TranscodeError with a remediation hint.
func (t *Transcoder) Transcode(ctx context.Context, wavPath string) (string, error) {
	mp3Path := strings.TrimSuffix(wavPath, ".wav") + ".mp3"

	_, ffmpegErr := t.runner.Run(ctx, "ffmpeg", "-y", "-i", wavPath, "-codec:a", "libmp3lame", "-qscale:a", "2", mp3Path)
	if ffmpegErr == nil {
		return mp3Path, nil
	}
	t.log.WithComponent("audio").WithError(ffmpegErr).Warn("ffmpeg conversion failed, trying lame")

	_, lameErr := t.runner.Run(ctx, "lame", "--preset", "standard", wavPath, mp3Path)
	if lameErr == nil {
		return mp3Path, nil
	}

	// A partial output from a failed attempt must not leak.
	_ = os.Remove(mp3Path)

	return "", &TranscodeError{
		Tools: []string{"ffmpeg", "lame"},
		Hint:  installHint(),
		Err:   errors.Join(ffmpegErr, lameErr),
	}
}

// CompressedDuration measures an MP3 artifact. ffprobe gives an exact value;
// when it is missing the duration is scraped from ffmpeg's diagnostic
// output. Both failing logs and returns 0.
func (t *Transcoder) CompressedDuration(ctx context.Context, mp3Path string) float64 {
	res, err := t.runner.Run(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		mp3Path)
	if err == nil {
		if seconds, parseErr := strconv.ParseFloat(strings.TrimSpace(res.Stdout), 64); parseErr == nil {
			return round2(seconds)
		}
	}

	// ffmpeg exits non-zero without an output file but still prints the
	// stream duration to stderr.
	res, _ = t.runner.Run(ctx, "ffmpeg", "-i", mp3Path)
	if seconds, ok := parseDurationLine(res.Stderr); ok {
		return round2(seconds)
	}

	t.log.WithComponent("audio").WithField("path", mp3Path).
		Error("failed to measure mp3 duration with ffprobe and ffmpeg")
	return 0
}

var durationLineRe = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

func parseDurationLine(diagnostics string) (float64, bool) {
	m := durationLineRe.FindStringSubmatch(diagnostics)
	if m == nil {
		return 0, false
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, false
	}
	return float64(hours*3600+minutes*60) + seconds, true
}

func installHint() string {
	switch runtime.GOOS {
	case "darwin":
		return "install with: brew install ffmpeg"
	case "windows":
		return "install ffmpeg from https://ffmpeg.org/download.html and add it to PATH"
	default:
		return "install with: apt-get install ffmpeg (or the distro equivalent)"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// wavDuration walks the RIFF chunks of a WAV file and derives playable
// seconds from the data chunk size, block alignment, and sample rate.
func wavDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var header [12]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		return 0, fmt.Errorf("read riff header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return 0, errors.New("not a wav file")
	}

	var (
		sampleRate uint32
		blockAlign uint16
		dataSize   uint32
		haveFmt    bool
	)

	for {
		var chunk [8]byte
		if _, err := io.ReadFull(f, chunk[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return 0, fmt.Errorf("read chunk header: %w", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			var fmtChunk [16]byte
			if _, err := io.ReadFull(f, fmtChunk[:]); err != nil {
				return 0, fmt.Errorf("read fmt chunk: %w", err)
			}
			sampleRate = binary.LittleEndian.Uint32(fmtChunk[4:8])
			blockAlign = binary.LittleEndian.Uint16(fmtChunk[12:14])
			haveFmt = true
			if size > 16 {
				if _, err := f.Seek(int64(size-16), io.SeekCurrent); err != nil {
					return 0, err
				}
			}
		case "data":
			dataSize = size
			if !haveFmt {
				if _, err := f.Seek(int64(size), io.SeekCurrent); err != nil {
					return 0, err
				}
			}
		default:
			if _, err := f.Seek(int64(size), io.SeekCurrent); err != nil {
				return 0, err
			}
		}

		if haveFmt && dataSize > 0 {
			break
		}
		// Chunks are word aligned; odd sizes carry a pad byte.
		if id != "fmt " && size%2 == 1 {
			if _, err := f.Seek(1, io.SeekCurrent); err != nil {
				return 0, err
			}
		}
	}

	if !haveFmt || sampleRate == 0 || blockAlign == 0 {
		return 0, errors.New("wav file missing fmt or data chunk")
	}

	frames := dataSize / uint32(blockAlign)
	return round2(float64(frames) / float64(sampleRate)), nil
}
