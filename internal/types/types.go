package types

// Vec3 is a position or displacement (x, y, z).
type Vec3 [3]float64

// Quat is an orientation quaternion ordered x, y, z, w.
type Quat [4]float64

// IdentityQuat is the zero rotation.
var IdentityQuat = Quat{0, 0, 0, 1}

type RigidBodySample struct {
	ID            int     `json:"rigid_body_id"`
	Position      Vec3    `json:"position"`
	Orientation   Quat    `json:"orientation"`
	MarkerError   float64 `json:"marker_error"`
	TrackingValid bool    `json:"tracking_valid"`
}

// MarkerSets maps a model name to its marker positions in stream order.
type MarkerSets map[string][]Vec3

func (m MarkerSets) Clone() MarkerSets {
	out := make(MarkerSets, len(m))
	for name, positions := range m {
		out[name] = append([]Vec3(nil), positions...)
	}
	return out
}

type LabeledMarker struct {
	ID       int     `json:"id"`
	ModelID  int     `json:"model_id"`
	MarkerID int     `json:"marker_id"`
	Pos      Vec3    `json:"pos"`
	Size     float64 `json:"size"`
	Residual float64 `json:"residual"`
	Param    int     `json:"param"`
}

// UnpackMarkerID splits a packed labeled marker id into its model and marker parts.
func UnpackMarkerID(id int) (modelID, markerID int) {
	return id >> 16, id & 0xFFFF
}

// InfoType selects which pose fields a rigid body query returns.
type InfoType string

const (
	InfoPosition    InfoType = "position"
	InfoOrientation InfoType = "orientation"
	InfoBoth        InfoType = "both"
)

func (t InfoType) Valid() bool {
	switch t {
	case InfoPosition, InfoOrientation, InfoBoth:
		return true
	default:
		return false
	}
}

// RigidBodyData is the result of a rigid body query. Position and Orientation
// are set according to the requested InfoType.
type RigidBodyData struct {
	Position      *Vec3   `json:"position,omitempty"`
	Orientation   *Quat   `json:"orientation,omitempty"`
	MarkerError   float64 `json:"marker_error"`
	TrackingValid bool    `json:"tracking_valid"`
}
