package ffmpeg

import (
	"strconv"
	"strings"
)

// BroadcastProfile holds the encoding parameters for an outgoing RTMP
// broadcast. The zero value is not usable; DefaultBroadcastProfile returns
// a ladder tuned for continuous low-bandwidth streaming.
type BroadcastProfile struct {
	VideoBitrate      string
	MaxBitrate        string
	BufferSize        string
	Resolution        string
	KeyframeInterval  int
	AudioBitrate      string
	ReconnectDelayMax int
}

// DefaultBroadcastProfile returns the default encoding ladder.
func DefaultBroadcastProfile() BroadcastProfile {
	return BroadcastProfile{
		VideoBitrate:      "500k",
		MaxBitrate:        "800k",
		BufferSize:        "1200k",
		Resolution:        "640x360",
		KeyframeInterval:  60,
		AudioBitrate:      "96k",
		ReconnectDelayMax: 2,
	}
}

// CommandBuilder builds ffmpeg commands with a fluent API.
type CommandBuilder struct {
	binary     string
	globalArgs []string
	inputArgs  []string
	input      string
	outputArgs []string
	output     string
	logLevel   string
}

// NewCommandBuilder creates a new ffmpeg command builder.
func NewCommandBuilder(ffmpegPath string) *CommandBuilder {
	return &CommandBuilder{
		binary:   ffmpegPath,
		logLevel: "error",
	}
}

// LogLevel sets the ffmpeg log level.
func (b *CommandBuilder) LogLevel(level string) *CommandBuilder {
	b.logLevel = level
	return b
}

// HideBanner hides the ffmpeg banner.
func (b *CommandBuilder) HideBanner() *CommandBuilder {
	b.globalArgs = append(b.globalArgs, "-hide_banner")
	return b
}

// Realtime reads the input at its native frame rate, required when feeding
// a live ingest from a file.
func (b *CommandBuilder) Realtime() *CommandBuilder {
	b.inputArgs = append(b.inputArgs, "-re")
	return b
}

// LoopForever loops the input indefinitely.
func (b *CommandBuilder) LoopForever() *CommandBuilder {
	b.inputArgs = append(b.inputArgs, "-stream_loop", "-1")
	return b
}

// Input sets the input source.
func (b *CommandBuilder) Input(input string) *CommandBuilder {
	b.input = input
	return b
}

// VideoCodec sets the video codec.
func (b *CommandBuilder) VideoCodec(codec string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-c:v", codec)
	return b
}

// VideoPreset sets the encoding preset.
func (b *CommandBuilder) VideoPreset(preset string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-preset", preset)
	return b
}

// VideoBitrate sets the target video bitrate.
func (b *CommandBuilder) VideoBitrate(bitrate string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-b:v", bitrate)
	return b
}

// RateControl bounds the encoder output with a maximum bitrate and VBV
// buffer size.
func (b *CommandBuilder) RateControl(maxrate, bufsize string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-maxrate", maxrate, "-bufsize", bufsize)
	return b
}

// Resolution scales the output to the given WxH size.
func (b *CommandBuilder) Resolution(size string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-s", size)
	return b
}

// KeyframeInterval fixes the GOP length so the ingest receives keyframes
// at a predictable cadence.
func (b *CommandBuilder) KeyframeInterval(frames int) *CommandBuilder {
	g := strconv.Itoa(frames)
	b.outputArgs = append(b.outputArgs, "-g", g, "-keyint_min", g)
	return b
}

// AudioCodec sets the audio codec.
func (b *CommandBuilder) AudioCodec(codec string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-c:a", codec)
	return b
}

// AudioBitrate sets the audio bitrate.
func (b *CommandBuilder) AudioBitrate(bitrate string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-b:a", bitrate)
	return b
}

// FLV selects the FLV muxer required by RTMP ingests.
func (b *CommandBuilder) FLV() *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-f", "flv")
	return b
}

// Reconnect enables automatic reconnection with a bounded delay.
func (b *CommandBuilder) Reconnect(delayMax int) *CommandBuilder {
	b.outputArgs = append(b.outputArgs,
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", strconv.Itoa(delayMax))
	return b
}

// Output sets the output destination.
func (b *CommandBuilder) Output(output string) *CommandBuilder {
	b.output = output
	return b
}

// Build assembles the final argument list.
func (b *CommandBuilder) Build() (binary string, args []string) {
	args = append(args, "-loglevel", b.logLevel)
	args = append(args, b.globalArgs...)
	args = append(args, b.inputArgs...)
	args = append(args, "-i", b.input)
	args = append(args, b.outputArgs...)
	args = append(args, b.output)
	return b.binary, args
}

// String returns the command as a string for logging.
func (b *CommandBuilder) String() string {
	bin, args := b.Build()
	return bin + " " + strings.Join(args, " ")
}

// BroadcastCommand builds the fixed broadcast pipeline for one session:
// input consumed at real-time rate and looped indefinitely, re-encoded to
// the profile's bounded ladder, muxed as FLV, published to the RTMP ingest
// URL with reconnect enabled.
func BroadcastCommand(ffmpegPath, mediaPath, rtmpURL string, profile BroadcastProfile) (string, []string) {
	return NewCommandBuilder(ffmpegPath).
		HideBanner().
		Realtime().
		LoopForever().
		Input(mediaPath).
		VideoCodec("libx264").
		VideoPreset("ultrafast").
		VideoBitrate(profile.VideoBitrate).
		RateControl(profile.MaxBitrate, profile.BufferSize).
		Resolution(profile.Resolution).
		KeyframeInterval(profile.KeyframeInterval).
		AudioCodec("aac").
		AudioBitrate(profile.AudioBitrate).
		FLV().
		Reconnect(profile.ReconnectDelayMax).
		Output(rtmpURL).
		Build()
}
