package media

import (
	"context"
	"fmt"
	"strings"
)

// Concatenate joins normalized clips, in slice order, into one MP4 with a
// streaming-friendly layout. A consistent sample aspect ratio is forced on
// every input stream so sources with differing SAR metadata concatenate
// without distortion.
func (p *FFmpegProcessor) Concatenate(ctx context.Context, clipPaths []string, output string) error {
	if len(clipPaths) == 0 {
		return ErrNoClips
	}

	if len(clipPaths) == 1 {
		// Already normalized; only the container layout needs rewriting.
		return p.remuxForStreaming(ctx, clipPaths[0], output)
	}

	args := []string{"-y"}
	for _, clip := range clipPaths {
		args = append(args, "-i", clip)
	}
	args = append(args,
		"-filter_complex", concatFilterGraph(len(clipPaths)),
		"-map", "[v]",
		"-map", "[a]",
	)
	args = append(args, videoEncodeArgs(concatPreset)...)
	args = append(args, audioEncodeArgs()...)
	args = append(args, "-movflags", "+faststart", output)

	return p.runFFmpeg(ctx, args)
}

// concatFilterGraph builds a single-pass graph that tags every video input
// with setsar=1 and feeds all streams, in order, into one concat filter.
func concatFilterGraph(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "[%d:v]setsar=1[v%d];", i, i)
	}
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "[v%d][%d:a]", i, i)
	}
	fmt.Fprintf(&sb, "concat=n=%d:v=1:a=1[v][a]", n)
	return sb.String()
}

// remuxForStreaming copies a single clip into a fresh container with the
// moov atom up front for progressive playback. No re-encoding happens.
func (p *FFmpegProcessor) remuxForStreaming(ctx context.Context, src, output string) error {
	args := []string{
		"-y",
		"-i", src,
		"-c", "copy",
		"-movflags", "+faststart",
		output,
	}
	return p.runFFmpeg(ctx, args)
}
