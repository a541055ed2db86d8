package domain

import (
	"errors"
	"testing"
)

func TestCandidateStream_IsProgressive(t *testing.T) {
	tests := []struct {
		name   string
		stream CandidateStream
		want   bool
	}{
		{
			"muxed mp4 over https",
			CandidateStream{Container: "mp4", VideoCodec: "h264", AudioCodec: "aac", Protocol: "https"},
			true,
		},
		{
			"muxed mp4 over http",
			CandidateStream{Container: "mp4", VideoCodec: "avc1.64001F", AudioCodec: "mp4a.40.2", Protocol: "http"},
			true,
		},
		{
			"unknown protocol treated as plain http",
			CandidateStream{Container: "mp4", VideoCodec: "h264", AudioCodec: "aac"},
			true,
		},
		{
			"hls manifest",
			CandidateStream{Container: "mp4", VideoCodec: "h264", AudioCodec: "aac", Protocol: "m3u8"},
			false,
		},
		{
			"native hls",
			CandidateStream{Container: "mp4", VideoCodec: "h264", AudioCodec: "aac", Protocol: "m3u8_native"},
			false,
		},
		{
			"dash segments",
			CandidateStream{Container: "mp4", VideoCodec: "h264", AudioCodec: "aac", Protocol: "http_dash_segments"},
			false,
		},
		{
			"segmented protocol case-insensitive",
			CandidateStream{Container: "mp4", VideoCodec: "h264", AudioCodec: "aac", Protocol: "M3U8"},
			false,
		},
		{
			"video only",
			CandidateStream{Container: "mp4", VideoCodec: "h264", AudioCodec: "none", Protocol: "https"},
			false,
		},
		{
			"audio only",
			CandidateStream{Container: "mp4", VideoCodec: "none", AudioCodec: "aac", Protocol: "https"},
			false,
		},
		{
			"codec fields absent",
			CandidateStream{Container: "mp4", Protocol: "https"},
			false,
		},
		{
			"webm container",
			CandidateStream{Container: "webm", VideoCodec: "vp9", AudioCodec: "opus", Protocol: "https"},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stream.IsProgressive(); got != tt.want {
				t.Errorf("IsProgressive() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMediaDescriptor_DisplayTitle(t *testing.T) {
	tests := []struct {
		name string
		desc MediaDescriptor
		want string
	}{
		{"title present", MediaDescriptor{ID: "123", Title: "My Clip"}, "My Clip"},
		{"title absent falls back to id", MediaDescriptor{ID: "123"}, "123"},
		{"nothing falls back to literal", MediaDescriptor{}, "video"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.desc.DisplayTitle(); got != tt.want {
				t.Errorf("DisplayTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlanKind_String(t *testing.T) {
	tests := []struct {
		kind PlanKind
		want string
	}{
		{PlanProxyDirect, "proxy_direct"},
		{PlanFetchTranscode, "fetch_transcode"},
		{PlanUnsupported, "unsupported"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("PlanKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestUpstreamError(t *testing.T) {
	err := &UpstreamError{Status: 404}

	if err.Error() != "upstream fetch failed: status 404" {
		t.Errorf("Error() = %q", err.Error())
	}

	var ue *UpstreamError
	var wrapped error = err
	if !errors.As(wrapped, &ue) {
		t.Fatal("errors.As should match *UpstreamError")
	}
	if ue.Status != 404 {
		t.Errorf("Status = %d, want 404", ue.Status)
	}
}
