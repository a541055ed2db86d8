package domain

import "strings"

// segmentedProtocols are delivery protocols that split media into
// manifest-described segments and cannot be proxied as one byte-stream.
var segmentedProtocols = map[string]bool{
	"m3u8":               true,
	"m3u8_native":        true,
	"hls":                true,
	"dash":               true,
	"http_dash_segments": true,
	"ism":                true,
	"f4m":                true,
}

// CandidateStream is one encoded rendition of a video as reported by the
// metadata resolver. Optional fields keep the resolver's conventions:
// an empty or "none" codec means the track is absent, zero bitrate/height
// means unknown.
type CandidateStream struct {
	FormatID   string
	Container  string
	VideoCodec string
	AudioCodec string
	Protocol   string
	Bitrate    float64
	Height     int
	SourceURL  string
	Headers    map[string]string
}

// IsProgressive reports whether the stream is a single muxed mp4 file with
// both tracks present, fetchable over plain HTTP.
func (s CandidateStream) IsProgressive() bool {
	if s.Container != "mp4" {
		return false
	}
	if s.VideoCodec == "" || s.VideoCodec == "none" {
		return false
	}
	if s.AudioCodec == "" || s.AudioCodec == "none" {
		return false
	}
	return !segmentedProtocols[strings.ToLower(s.Protocol)]
}

// MediaDescriptor is the resolved metadata for one request.
type MediaDescriptor struct {
	ID      string
	Title   string
	Formats []CandidateStream
}

// DisplayTitle returns the title for user-facing filenames, falling back to
// the opaque id and then to a fixed default.
func (d *MediaDescriptor) DisplayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	if d.ID != "" {
		return d.ID
	}
	return "video"
}

// PlanKind identifies the chosen delivery path.
type PlanKind int

const (
	PlanUnsupported PlanKind = iota
	PlanProxyDirect
	PlanFetchTranscode
)

func (k PlanKind) String() string {
	switch k {
	case PlanProxyDirect:
		return "proxy_direct"
	case PlanFetchTranscode:
		return "fetch_transcode"
	default:
		return "unsupported"
	}
}

// DeliveryPlan is the per-request decision output. It is created once,
// consumed once, and discarded after the response completes.
type DeliveryPlan struct {
	Kind     PlanKind
	Stream   *CandidateStream
	Filename string
}

// DeliveryPath labels which path actually served the bytes.
type DeliveryPath string

const (
	PathProxy     DeliveryPath = "proxy"
	PathTranscode DeliveryPath = "transcode"
)
