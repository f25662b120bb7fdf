package provider

// StreamKind is the media type of a container stream. The numbering follows
// the libav media types so that backends wrapping libav can convert directly.
type StreamKind int

const (
	StreamKindUnknown    StreamKind = -1
	StreamKindVideo      StreamKind = 0
	StreamKindAudio      StreamKind = 1
	StreamKindData       StreamKind = 2
	StreamKindSubtitle   StreamKind = 3
	StreamKindAttachment StreamKind = 4
	// StreamKindNB is the number of known kinds. Some backends report it for
	// streams they cannot classify.
	StreamKindNB StreamKind = 5
)

// String returns one of "video", "audio", "data", "subtitle", "attachment",
// "nb" or "unknown". Values outside the enumeration render as "unknown".
func (k StreamKind) String() string {
	switch k {
	case StreamKindVideo:
		return "video"
	case StreamKindAudio:
		return "audio"
	case StreamKindData:
		return "data"
	case StreamKindSubtitle:
		return "subtitle"
	case StreamKindAttachment:
		return "attachment"
	case StreamKindNB:
		return "nb"
	default:
		return "unknown"
	}
}

func (k StreamKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// StreamKindFromString maps a codec type label (as printed by ffprobe) to a kind.
func StreamKindFromString(s string) StreamKind {
	switch s {
	case "video":
		return StreamKindVideo
	case "audio":
		return StreamKindAudio
	case "data":
		return StreamKindData
	case "subtitle":
		return StreamKindSubtitle
	case "attachment":
		return StreamKindAttachment
	default:
		return StreamKindUnknown
	}
}
