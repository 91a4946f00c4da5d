package media

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Canonical intermediate format. Every normalized clip is encoded to these
// parameters so concatenation never has to reconcile stream properties.
const (
	TargetWidth   = 854 // 16:9 at 480p, web-friendly
	TargetHeight  = 480
	TargetFPS     = 30
	AudioRate     = 44100
	AudioChannels = 2
)

const (
	videoCodec      = "libx264"
	normalizePreset = "medium"
	concatPreset    = "fast"
	videoCRF        = "28"
	pixelFormat     = "yuv420p"
	audioCodec      = "aac"
	audioBitrate    = "128k"

	// minClipDuration is the floor for synthesized clips; ffmpeg misbehaves
	// on sub-second still loops.
	minClipDuration = 1.0
	// minLoopableDuration is the source length below which looping degrades
	// into a stutter; such videos are rebuilt from a single frame instead.
	minLoopableDuration = 0.5
	// durationTolerance is how close a native duration must be to the target
	// to pass through without cutting or looping.
	durationTolerance = 0.05
)

// ErrUnusableSource is returned when a source probes to a non-positive duration.
var ErrUnusableSource = errors.New("source media has no usable duration")

// normalizePlan is the duration strategy chosen for one video source.
type normalizePlan int

const (
	planFreeze normalizePlan = iota // rebuild from a single frame
	planLoop                        // repeat the source, cut at target
	planCut                         // trim the source to target
	planPass                        // re-encode without changing duration
)

// planVideo picks the duration strategy for a source of the given native
// length against the requested target.
func planVideo(native, target float64) normalizePlan {
	switch {
	case native < minLoopableDuration:
		return planFreeze
	case native+durationTolerance < target:
		return planLoop
	case native-durationTolerance > target:
		return planCut
	default:
		return planPass
	}
}

// scaleFilter fits any input inside the canonical frame, preserving aspect
// ratio and centering with letterbox padding.
func scaleFilter() string {
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		TargetWidth, TargetHeight, TargetWidth, TargetHeight)
}

// videoFilter is the scale chain plus frame-rate conversion for video sources.
func videoFilter() string {
	return fmt.Sprintf("%s,fps=%d", scaleFilter(), TargetFPS)
}

// silentSource is the lavfi specification for a synthesized silent track.
func silentSource() string {
	return fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d", AudioRate)
}

// audioEncodeArgs re-encodes any audio stream to the canonical spec.
func audioEncodeArgs() []string {
	return []string{
		"-c:a", audioCodec,
		"-b:a", audioBitrate,
		"-ar", strconv.Itoa(AudioRate),
		"-ac", strconv.Itoa(AudioChannels),
	}
}

// videoEncodeArgs encodes the video stream to the canonical spec with the
// given preset.
func videoEncodeArgs(preset string) []string {
	return []string{
		"-c:v", videoCodec,
		"-preset", preset,
		"-crf", videoCRF,
		"-pix_fmt", pixelFormat,
	}
}

// ImageToClip loops a still image into a clip of exactly the given duration,
// letterboxed into the canonical frame, with a silent stereo track so every
// intermediate carries uniform audio.
func (p *FFmpegProcessor) ImageToClip(ctx context.Context, src, dst string, duration float64) error {
	if duration <= 0 {
		return fmt.Errorf("%w: got %.2f", ErrInvalidDuration, duration)
	}
	if duration < minClipDuration {
		duration = minClipDuration
	}

	args := []string{
		"-y",
		"-loop", "1",
		"-framerate", strconv.Itoa(TargetFPS),
		"-i", src,
		"-f", "lavfi",
		"-i", silentSource(),
		"-vf", scaleFilter(),
		"-t", fmt.Sprintf("%.2f", duration),
		"-map", "0:v",
		"-map", "1:a",
	}
	args = append(args, videoEncodeArgs(normalizePreset)...)
	args = append(args, "-tune", "stillimage")
	args = append(args, audioEncodeArgs()...)
	args = append(args, dst)

	return p.runFFmpeg(ctx, args)
}

// NormalizeVideo transcodes a video source into the canonical format at the
// target duration, looping short sources and trimming long ones. A source
// already within tolerance of the target passes through a single re-encode,
// and one under half a second is rebuilt from a single frame.
func (p *FFmpegProcessor) NormalizeVideo(ctx context.Context, src, dst string, target float64) error {
	if target <= 0 {
		return fmt.Errorf("%w: got %.2f", ErrInvalidDuration, target)
	}

	native, err := p.Duration(ctx, src)
	if err != nil {
		return fmt.Errorf("probe source duration: %w", err)
	}
	if native <= 0 {
		return fmt.Errorf("%w: probed %.2f for %s", ErrUnusableSource, native, src)
	}

	hasAudio, err := p.HasAudio(ctx, src)
	if err != nil {
		return fmt.Errorf("probe source audio: %w", err)
	}

	switch planVideo(native, target) {
	case planFreeze:
		if err := p.freezeFrameClip(ctx, src, dst, target); err == nil {
			return nil
		}
		// Frame extraction can fail on single-frame containers; looping the
		// short source still yields a usable clip.
		return p.loopVideo(ctx, src, dst, target, native, hasAudio)
	case planLoop:
		return p.loopVideo(ctx, src, dst, target, native, hasAudio)
	case planCut:
		return p.directVideo(ctx, src, dst, target, hasAudio, true)
	default:
		return p.directVideo(ctx, src, dst, target, hasAudio, false)
	}
}

// freezeFrameClip extracts a single frame from the source and loops it into
// a still clip of the target duration.
func (p *FFmpegProcessor) freezeFrameClip(ctx context.Context, src, dst string, target float64) error {
	frame := dst + ".frame.jpg"
	defer func() { _ = os.Remove(frame) }()

	args := []string{
		"-y",
		"-i", src,
		"-vframes", "1",
		"-q:v", "2",
		frame,
	}
	if err := p.runFFmpeg(ctx, args); err != nil {
		return fmt.Errorf("extract frame: %w", err)
	}

	return p.ImageToClip(ctx, frame, dst, target)
}

// loopVideo repeats the source via the concat demuxer until it covers the
// target duration, then cuts at the target.
func (p *FFmpegProcessor) loopVideo(ctx context.Context, src, dst string, target, native float64, hasAudio bool) error {
	count := int(math.Ceil(target / native))
	listFile, err := p.writeLoopList(src, count)
	if err != nil {
		return fmt.Errorf("create loop list: %w", err)
	}
	defer func() { _ = os.Remove(listFile) }()

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
	}
	if !hasAudio {
		args = append(args, "-f", "lavfi", "-i", silentSource())
	}
	args = append(args,
		"-t", fmt.Sprintf("%.2f", target),
		"-vf", videoFilter(),
	)
	if !hasAudio {
		args = append(args, "-map", "0:v", "-map", "1:a")
	}
	args = append(args, videoEncodeArgs(normalizePreset)...)
	args = append(args, audioEncodeArgs()...)
	args = append(args, dst)

	return p.runFFmpeg(ctx, args)
}

// directVideo re-encodes the source in one pass. When limit is true the
// output is cut at the target duration; otherwise the source duration is
// kept as-is.
func (p *FFmpegProcessor) directVideo(ctx context.Context, src, dst string, target float64, hasAudio, limit bool) error {
	args := []string{
		"-y",
		"-i", src,
	}
	if !hasAudio {
		args = append(args, "-f", "lavfi", "-i", silentSource())
	}
	if limit {
		args = append(args, "-t", fmt.Sprintf("%.2f", target))
	}
	args = append(args, "-vf", videoFilter())
	if !hasAudio {
		// The silent source is unbounded; stop with the video stream.
		args = append(args, "-map", "0:v", "-map", "1:a", "-shortest")
	}
	args = append(args, videoEncodeArgs(normalizePreset)...)
	args = append(args, audioEncodeArgs()...)
	args = append(args, dst)

	return p.runFFmpeg(ctx, args)
}

// SynthesizePlaceholder writes a solid black clip of the given duration in
// the canonical format, used to fill the slot of an unfetchable item.
func (p *FFmpegProcessor) SynthesizePlaceholder(ctx context.Context, dst string, duration float64) error {
	if duration <= 0 {
		return fmt.Errorf("%w: got %.2f", ErrInvalidDuration, duration)
	}
	if duration < minClipDuration {
		duration = minClipDuration
	}

	colorSource := fmt.Sprintf("color=c=black:s=%dx%d:r=%d", TargetWidth, TargetHeight, TargetFPS)

	args := []string{
		"-y",
		"-f", "lavfi",
		"-i", colorSource,
		"-f", "lavfi",
		"-i", silentSource(),
		"-t", fmt.Sprintf("%.2f", duration),
		"-map", "0:v",
		"-map", "1:a",
	}
	args = append(args, videoEncodeArgs(normalizePreset)...)
	args = append(args, "-tune", "stillimage")
	args = append(args, audioEncodeArgs()...)
	args = append(args, dst)

	return p.runFFmpeg(ctx, args)
}

// RasterizeSVG renders a vector image to a bitmap fitted within the canonical
// frame. The output format follows the dst extension.
func (p *FFmpegProcessor) RasterizeSVG(ctx context.Context, src, dst string) error {
	filter := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", TargetWidth, TargetHeight)

	args := []string{
		"-y",
		"-i", src,
		"-vf", filter,
		dst,
	}

	return p.runFFmpeg(ctx, args)
}

// writeLoopList creates a temporary concat-demuxer list referencing the same
// file count times.
func (p *FFmpegProcessor) writeLoopList(path string, count int) (string, error) {
	f, err := os.CreateTemp("", "ffmpeg-loop-*.txt")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = f.Close() }()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("get absolute path for %s: %w", path, err)
	}
	// Escape single quotes in path
	escapedPath := strings.ReplaceAll(absPath, "'", "'\\''")

	for i := 0; i < count; i++ {
		if _, err := fmt.Fprintf(f, "file '%s'\n", escapedPath); err != nil {
			return "", fmt.Errorf("write to loop list: %w", err)
		}
	}

	return f.Name(), nil
}
