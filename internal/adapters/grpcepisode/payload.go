// Package grpcepisode implements the episode handle over gRPC.
//
// The service has one unary method, tickship.episode.v1.Episode/ApplyBatch.
// Requests and responses are google.protobuf.Struct messages, so no
// generated code is needed on either side:
//
//	request:  {commands: [{actor, throttle, brake, steer}], tick_cue}
//	response: {results: [{actor, error}]}
//
// A response without a results field reports no per-command outcome.
package grpcepisode

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/bft-labs/tickship/internal/domain"
)

func encodeRequest(cmds []domain.Command, tickCue bool) *structpb.Struct {
	list := make([]*structpb.Value, len(cmds))
	for i, c := range cmds {
		list[i] = structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"actor":    structpb.NewNumberValue(float64(c.Actor)),
			"throttle": structpb.NewNumberValue(c.Control.Throttle),
			"brake":    structpb.NewNumberValue(c.Control.Brake),
			"steer":    structpb.NewNumberValue(c.Control.Steer),
		}})
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"commands": structpb.NewListValue(&structpb.ListValue{Values: list}),
		"tick_cue": structpb.NewBoolValue(tickCue),
	}}
}

func decodeRequest(s *structpb.Struct) ([]domain.Command, bool, error) {
	fields := s.GetFields()
	tickCue := fields["tick_cue"].GetBoolValue()

	values := fields["commands"].GetListValue().GetValues()
	cmds := make([]domain.Command, len(values))
	for i, v := range values {
		entry := v.GetStructValue()
		if entry == nil {
			return nil, false, fmt.Errorf("command %d: not an object", i)
		}
		actor, err := actorID(entry.GetFields()["actor"])
		if err != nil {
			return nil, false, fmt.Errorf("command %d: %w", i, err)
		}
		f := entry.GetFields()
		cmds[i] = domain.Command{
			Actor: actor,
			Control: domain.ControlValues{
				Throttle: f["throttle"].GetNumberValue(),
				Brake:    f["brake"].GetNumberValue(),
				Steer:    f["steer"].GetNumberValue(),
			},
		}
	}
	return cmds, tickCue, nil
}

func encodeResponse(results []domain.CommandResult) *structpb.Struct {
	out := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	if results == nil {
		return out
	}
	list := make([]*structpb.Value, len(results))
	for i, r := range results {
		list[i] = structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"actor": structpb.NewNumberValue(float64(r.Actor)),
			"error": structpb.NewStringValue(r.Error),
		}})
	}
	out.Fields["results"] = structpb.NewListValue(&structpb.ListValue{Values: list})
	return out
}

func decodeResponse(s *structpb.Struct) ([]domain.CommandResult, error) {
	v, ok := s.GetFields()["results"]
	if !ok {
		return nil, nil
	}
	values := v.GetListValue().GetValues()
	results := make([]domain.CommandResult, len(values))
	for i, rv := range values {
		entry := rv.GetStructValue()
		if entry == nil {
			return nil, fmt.Errorf("result %d: not an object", i)
		}
		actor, err := actorID(entry.GetFields()["actor"])
		if err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}
		results[i] = domain.CommandResult{
			Actor: actor,
			Error: entry.GetFields()["error"].GetStringValue(),
		}
	}
	return results, nil
}

func actorID(v *structpb.Value) (domain.ActorID, error) {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("actor id missing")
	}
	id := n.NumberValue
	if id < 0 || id > math.MaxUint32 || id != math.Trunc(id) {
		return 0, fmt.Errorf("actor id %v out of range", id)
	}
	return domain.ActorID(id), nil
}
