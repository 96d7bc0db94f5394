package natnet

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"mocap-track-go/internal/types"
)

const frameMessageType = "frame"

// Pointers distinguish an absent category (nil) from an empty one.
type wireFrame struct {
	Type             string               `cbor:"type"`
	FrameNumber      int                  `cbor:"frame_number"`
	RigidBodies      *[]wireRigidBody     `cbor:"rigid_bodies,omitempty"`
	MarkerSets       *[]wireMarkerSet     `cbor:"marker_sets,omitempty"`
	UnlabeledMarkers *[]types.Vec3        `cbor:"unlabeled_markers,omitempty"`
	LabeledMarkers   *[]wireLabeledMarker `cbor:"labeled_markers,omitempty"`
}

type wireRigidBody struct {
	ID            int        `cbor:"id"`
	Pos           types.Vec3 `cbor:"pos"`
	Rot           types.Quat `cbor:"rot"`
	Error         float64    `cbor:"error"`
	TrackingValid bool       `cbor:"tracking_valid"`
}

type wireMarkerSet struct {
	ModelName string       `cbor:"model_name"`
	Positions []types.Vec3 `cbor:"positions"`
}

type wireLabeledMarker struct {
	ID       int        `cbor:"id"`
	Pos      types.Vec3 `cbor:"pos"`
	Size     float64    `cbor:"size"`
	Residual float64    `cbor:"residual"`
	Param    int        `cbor:"param"`
}

func EncodeFrame(frame types.FramePayload) ([]byte, error) {
	msg := wireFrame{
		Type:        frameMessageType,
		FrameNumber: frame.FrameNumber,
	}
	if frame.RigidBodies != nil {
		bodies := make([]wireRigidBody, len(frame.RigidBodies))
		for i, rb := range frame.RigidBodies {
			bodies[i] = wireRigidBody(rb)
		}
		msg.RigidBodies = &bodies
	}
	if frame.MarkerSets != nil {
		sets := make([]wireMarkerSet, len(frame.MarkerSets))
		for i, ms := range frame.MarkerSets {
			sets[i] = wireMarkerSet{ModelName: ms.ModelName, Positions: nonNil(ms.Positions)}
		}
		msg.MarkerSets = &sets
	}
	if frame.UnlabeledMarkers != nil {
		unlabeled := frame.UnlabeledMarkers
		msg.UnlabeledMarkers = &unlabeled
	}
	if frame.LabeledMarkers != nil {
		labeled := make([]wireLabeledMarker, len(frame.LabeledMarkers))
		for i, lm := range frame.LabeledMarkers {
			labeled[i] = wireLabeledMarker(lm)
		}
		msg.LabeledMarkers = &labeled
	}
	return cbor.Marshal(msg)
}

func DecodeFrame(data []byte) (types.FramePayload, error) {
	var msg wireFrame
	if err := cbor.Unmarshal(data, &msg); err != nil {
		return types.FramePayload{}, fmt.Errorf("decode frame: %w", err)
	}
	if msg.Type != frameMessageType {
		return types.FramePayload{}, fmt.Errorf("unexpected message type %q", msg.Type)
	}

	frame := types.FramePayload{FrameNumber: msg.FrameNumber}
	if msg.RigidBodies != nil {
		frame.RigidBodies = make([]types.RigidBodyReport, len(*msg.RigidBodies))
		for i, rb := range *msg.RigidBodies {
			frame.RigidBodies[i] = types.RigidBodyReport(rb)
		}
	}
	if msg.MarkerSets != nil {
		frame.MarkerSets = make([]types.MarkerSetReport, len(*msg.MarkerSets))
		for i, ms := range *msg.MarkerSets {
			frame.MarkerSets[i] = types.MarkerSetReport{ModelName: ms.ModelName, Positions: nonNil(ms.Positions)}
		}
	}
	if msg.UnlabeledMarkers != nil {
		frame.UnlabeledMarkers = nonNil(*msg.UnlabeledMarkers)
	}
	if msg.LabeledMarkers != nil {
		frame.LabeledMarkers = make([]types.LabeledMarkerReport, len(*msg.LabeledMarkers))
		for i, lm := range *msg.LabeledMarkers {
			frame.LabeledMarkers[i] = types.LabeledMarkerReport(lm)
		}
	}
	return frame, nil
}

func nonNil(v []types.Vec3) []types.Vec3 {
	if v == nil {
		return []types.Vec3{}
	}
	return v
}
