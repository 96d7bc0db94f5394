package types

// FramePayload is one frame as delivered by a stream client. A nil slice means
// the category was absent from the frame; a non-nil slice, even an empty one,
// means the source reported it.
type FramePayload struct {
	FrameNumber      int
	RigidBodies      []RigidBodyReport
	MarkerSets       []MarkerSetReport
	UnlabeledMarkers []Vec3
	LabeledMarkers   []LabeledMarkerReport
}

type RigidBodyReport struct {
	ID            int
	Pos           Vec3
	Rot           Quat
	Error         float64
	TrackingValid bool
}

type MarkerSetReport struct {
	ModelName string
	Positions []Vec3
}

type LabeledMarkerReport struct {
	ID       int
	Pos      Vec3
	Size     float64
	Residual float64
	Param    int
}
