package metrics

// Attribute keys shared by the OTel instruments.
const (
	AttrFrameType = "frame_type"
	AttrStatus    = "status"
	AttrEventKind = "event_kind"
	AttrResource  = "resource"
)
