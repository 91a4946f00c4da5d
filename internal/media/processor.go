// Package media provides probing and transcoding of clips via the ffmpeg CLI.
package media

import "context"

// Processor defines the interface for media probing and transcoding operations.
// Implementations should delegate to ffmpeg/ffprobe rather than decode media
// themselves.
type Processor interface {
	// Duration returns the container duration of a media file in seconds.
	Duration(ctx context.Context, path string) (float64, error)

	// Dimensions returns the pixel width and height of the first video stream.
	// It doubles as a decodability check for downloaded images: a file that
	// cannot be probed is not usable.
	Dimensions(ctx context.Context, path string) (width, height int, err error)

	// HasAudio reports whether the file carries at least one audio stream.
	HasAudio(ctx context.Context, path string) (bool, error)

	// RasterizeSVG renders a vector image to a bitmap sized within the
	// canonical frame, writing the result to dst.
	RasterizeSVG(ctx context.Context, src, dst string) error

	// ImageToClip loops a still image into a clip of the given duration in
	// the canonical intermediate format, with a silent stereo audio track.
	ImageToClip(ctx context.Context, src, dst string, duration float64) error

	// NormalizeVideo transcodes a video into the canonical intermediate
	// format at exactly the target duration, looping or cutting the source
	// as needed. Sources without audio receive a synthesized silent track.
	NormalizeVideo(ctx context.Context, src, dst string, target float64) error

	// SynthesizePlaceholder writes a solid-color clip of the given duration
	// in the canonical intermediate format.
	SynthesizePlaceholder(ctx context.Context, dst string, duration float64) error

	// Concatenate joins normalized clips, in order, into one MP4 with
	// consistent sample-aspect-ratio tags and a streaming-friendly layout.
	Concatenate(ctx context.Context, clipPaths []string, output string) error
}
