// Package ffmpeg wraps the external ffmpeg/ffprobe binaries used to inspect
// and normalize downloaded media.
package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Processor invokes ffmpeg and ffprobe.
type Processor struct {
	ffmpegPath  string
	ffprobePath string
}

// NewProcessor creates a processor, resolving ffmpeg and ffprobe on PATH.
func NewProcessor() (*Processor, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	return &Processor{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}, nil
}

// IsAvailable checks if ffmpeg and ffprobe are available on the system.
func IsAvailable() bool {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return false
	}
	_, err := exec.LookPath("ffprobe")
	return err == nil
}

// ProbeResult contains metadata about a media file.
type ProbeResult struct {
	Duration   float64
	Width      int
	Height     int
	VideoCodec string
	AudioCodec string
	HasAudio   bool
	Bitrate    int64
	FileSize   int64
}

// Probe extracts stream and container metadata from a media file.
func (p *Processor) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat media: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}

	type ffprobeFormat struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	}
	type ffprobeStream struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	}
	type ffprobeOutput struct {
		Format  ffprobeFormat   `json:"format"`
		Streams []ffprobeStream `json:"streams"`
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(output, &parsed); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	result := &ProbeResult{FileSize: stat.Size()}

	if parsed.Format.Duration != "" {
		if dur, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
			result.Duration = dur
		}
	}
	if parsed.Format.BitRate != "" {
		if br, err := strconv.ParseInt(parsed.Format.BitRate, 10, 64); err == nil {
			result.Bitrate = br
		}
	}

	for _, s := range parsed.Streams {
		switch s.CodecType {
		case "audio":
			result.HasAudio = true
			if result.AudioCodec == "" {
				result.AudioCodec = s.CodecName
			}
		case "video":
			if result.VideoCodec == "" {
				result.VideoCodec = s.CodecName
			}
			if result.Width == 0 && s.Width > 0 {
				result.Width = s.Width
			}
			if result.Height == 0 && s.Height > 0 {
				result.Height = s.Height
			}
		}
	}

	return result, nil
}

// Valid option values for PostprocessConfig. Invalid combinations are
// rejected before any process is launched.
var (
	validVideoCodecs = map[string]bool{"libx264": true, "libx265": true, "copy": true}
	validAudioCodecs = map[string]bool{"aac": true, "copy": true}
	validPresets = map[string]bool{
		"ultrafast": true, "superfast": true, "veryfast": true, "faster": true,
		"fast": true, "medium": true, "slow": true, "slower": true, "veryslow": true,
	}
)

// PostprocessConfig is the typed option set for output normalization.
type PostprocessConfig struct {
	VideoCodec   string // target video codec (default "libx264")
	AudioCodec   string // target audio codec (default "aac")
	Preset       string // encoder preset (default "veryfast")
	CRF          int    // constant rate factor 0-51 (default 23)
	AudioBitrate string // e.g. "128k"
	FastStart    bool   // relocate the moov atom for progressive playback
}

// DefaultPostprocess returns the standard H.264 + AAC faststart target.
func DefaultPostprocess() PostprocessConfig {
	return PostprocessConfig{
		VideoCodec:   "libx264",
		AudioCodec:   "aac",
		Preset:       "veryfast",
		CRF:          23,
		AudioBitrate: "128k",
		FastStart:    true,
	}
}

// Validate rejects unknown codecs, presets, and out-of-range settings.
func (c PostprocessConfig) Validate() error {
	if !validVideoCodecs[c.VideoCodec] {
		return fmt.Errorf("unsupported video codec %q", c.VideoCodec)
	}
	if !validAudioCodecs[c.AudioCodec] {
		return fmt.Errorf("unsupported audio codec %q", c.AudioCodec)
	}
	if c.VideoCodec != "copy" && !validPresets[c.Preset] {
		return fmt.Errorf("unsupported preset %q", c.Preset)
	}
	if c.CRF < 0 || c.CRF > 51 {
		return fmt.Errorf("CRF %d out of range [0,51]", c.CRF)
	}
	if c.AudioCodec != "copy" && c.AudioBitrate != "" && !strings.HasSuffix(c.AudioBitrate, "k") {
		return fmt.Errorf("invalid audio bitrate %q", c.AudioBitrate)
	}
	return nil
}

// args renders the validated config to ffmpeg output options.
func (c PostprocessConfig) args() []string {
	args := []string{"-c:v", c.VideoCodec}
	if c.VideoCodec != "copy" {
		args = append(args,
			"-preset", c.Preset,
			"-crf", strconv.Itoa(c.CRF),
		)
	}
	args = append(args, "-c:a", c.AudioCodec)
	if c.AudioCodec != "copy" && c.AudioBitrate != "" {
		args = append(args, "-b:a", c.AudioBitrate)
	}
	if c.FastStart {
		args = append(args, "-movflags", "+faststart")
	}
	return args
}

// Normalize re-encodes src into dst per the config. The config is validated
// before the process launches.
func (p *Processor) Normalize(ctx context.Context, src, dst string, cfg PostprocessConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("postprocess config: %w", err)
	}

	args := []string{"-y", "-loglevel", "error", "-nostdin", "-i", src}
	args = append(args, cfg.args()...)
	args = append(args, dst)

	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("ffmpeg normalize: %s", msg)
	}
	return nil
}

// GetVersion returns the ffmpeg version string.
func GetVersion() (string, error) {
	cmd := exec.Command("ffmpeg", "-version")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 {
		return strings.TrimSpace(lines[0]), nil
	}
	return "unknown", nil
}
