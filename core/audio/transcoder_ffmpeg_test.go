package audio

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// These tests exercise a real ffmpeg binary and skip when one is not
// installed or cannot synthesize the Ogg sample.

func ffmpegAvailable(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}
	return path
}

func makeOggSample(t *testing.T, ffmpeg string) string {
	t.Helper()
	out := filepath.Join(t.TempDir(), "sample.ogg")
	cmd := exec.Command(ffmpeg,
		"-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=2",
		"-c:a", "libvorbis",
		"-y", out)
	if err := cmd.Run(); err != nil {
		t.Skipf("cannot synthesize ogg sample: %v", err)
	}
	return out
}

func transcodeSample(t *testing.T, tr *FFmpegTranscoder, sample string, opts TranscodeOptions) string {
	t.Helper()
	src, err := os.Open(sample)
	if err != nil {
		t.Fatalf("open sample: %v", err)
	}
	defer src.Close()

	out := filepath.Join(t.TempDir(), "out."+opts.Format.Extension())
	if err := tr.Transcode(context.Background(), src, out, opts); err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	return out
}

func TestTranscodeFLACRoundTrip(t *testing.T) {
	ffmpeg := ffmpegAvailable(t)
	sample := makeOggSample(t, ffmpeg)
	tr := NewFFmpegTranscoder(ffmpeg)

	out := transcodeSample(t, tr, sample, TranscodeOptions{Format: FormatFLAC, Compression: 4})

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(data) < 4 || !bytes.Equal(data[:4], []byte("fLaC")) {
		t.Fatalf("output is not a flac stream")
	}
}

func TestTranscodeFLACCompressionMonotonic(t *testing.T) {
	ffmpeg := ffmpegAvailable(t)
	sample := makeOggSample(t, ffmpeg)
	tr := NewFFmpegTranscoder(ffmpeg)

	fast := transcodeSample(t, tr, sample, TranscodeOptions{Format: FormatFLAC, Compression: 0})
	small := transcodeSample(t, tr, sample, TranscodeOptions{Format: FormatFLAC, Compression: 8})

	fastInfo, err := os.Stat(fast)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	smallInfo, err := os.Stat(small)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if smallInfo.Size() > fastInfo.Size() {
		t.Fatalf("compression 8 produced %d bytes, more than %d at level 0",
			smallInfo.Size(), fastInfo.Size())
	}
}

func TestTranscodeMP3WhenAvailable(t *testing.T) {
	ffmpeg := ffmpegAvailable(t)
	tr := NewFFmpegTranscoder(ffmpeg)
	if !tr.SupportsFormat(FormatMP3) {
		t.Skip("ffmpeg build has no libmp3lame")
	}

	sample := makeOggSample(t, ffmpeg)
	out := transcodeSample(t, tr, sample, TranscodeOptions{Format: FormatMP3})

	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("empty mp3 output")
	}
}

func TestTranscodeRejectsMalformedSource(t *testing.T) {
	ffmpeg := ffmpegAvailable(t)
	tr := NewFFmpegTranscoder(ffmpeg)

	garbage := bytes.NewReader(bytes.Repeat([]byte{0xde, 0xad}, 4096))
	out := filepath.Join(t.TempDir(), "out.flac")
	if err := tr.Transcode(context.Background(), garbage, out, TranscodeOptions{Format: FormatFLAC, Compression: 4}); err == nil {
		t.Fatal("garbage input must fail transcoding")
	}
}
