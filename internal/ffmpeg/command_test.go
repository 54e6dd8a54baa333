package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBroadcastCommandDefaultArgs(t *testing.T) {
	bin, args := BroadcastCommand(
		"/usr/bin/ffmpeg",
		"/media/show.mp4",
		"rtmp://a.rtmp.youtube.com/live2/secret",
		DefaultBroadcastProfile(),
	)

	assert.Equal(t, "/usr/bin/ffmpeg", bin)
	assert.Equal(t, []string{
		"-loglevel", "error",
		"-hide_banner",
		"-re",
		"-stream_loop", "-1",
		"-i", "/media/show.mp4",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-b:v", "500k",
		"-maxrate", "800k",
		"-bufsize", "1200k",
		"-s", "640x360",
		"-g", "60",
		"-keyint_min", "60",
		"-c:a", "aac",
		"-b:a", "96k",
		"-f", "flv",
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "2",
		"rtmp://a.rtmp.youtube.com/live2/secret",
	}, args)
}

func TestBroadcastCommandCustomProfile(t *testing.T) {
	profile := BroadcastProfile{
		VideoBitrate:      "1000k",
		MaxBitrate:        "1500k",
		BufferSize:        "3000k",
		Resolution:        "1280x720",
		KeyframeInterval:  120,
		AudioBitrate:      "128k",
		ReconnectDelayMax: 5,
	}

	_, args := BroadcastCommand("ffmpeg", "in.mp4", "rtmp://example/live/key", profile)

	assert.Contains(t, args, "1000k")
	assert.Contains(t, args, "1280x720")
	assert.Contains(t, args, "120")
	assert.Contains(t, args, "128k")
	assert.Equal(t, "rtmp://example/live/key", args[len(args)-1])
}

func TestCommandBuilderString(t *testing.T) {
	b := NewCommandBuilder("ffmpeg").Input("in.mp4").Output("out.flv")
	assert.Equal(t, "ffmpeg -loglevel error -i in.mp4 out.flv", b.String())
}

func TestDefaultBroadcastProfile(t *testing.T) {
	p := DefaultBroadcastProfile()
	assert.Equal(t, "500k", p.VideoBitrate)
	assert.Equal(t, "800k", p.MaxBitrate)
	assert.Equal(t, "1200k", p.BufferSize)
	assert.Equal(t, "640x360", p.Resolution)
	assert.Equal(t, 60, p.KeyframeInterval)
	assert.Equal(t, "96k", p.AudioBitrate)
	assert.Equal(t, 2, p.ReconnectDelayMax)
}
