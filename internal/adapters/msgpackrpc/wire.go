// Package msgpackrpc implements the episode handle over msgpack-RPC, the
// request/response framing used by the simulator's client API.
//
// A batch submission is a single request
//
//	[0, msgid, "apply_batch_sync", [commands, tick_cue]]
//
// answered by
//
//	[1, msgid, error, results]
//
// where every command is [actor, throttle, brake, steer] and every result
// is [actor, error]. A nil results value means the server reports no
// per-command outcome.
package msgpackrpc

import (
	"fmt"

	"github.com/bft-labs/tickship/internal/domain"
)

// MethodApplyBatch is the remote method that applies one batch of commands.
const MethodApplyBatch = "apply_batch_sync"

const (
	typeRequest  = 0
	typeResponse = 1
)

type request struct {
	_msgpack struct{} `msgpack:",as_array"`

	Type   int
	MsgID  uint32
	Method string
	Params batchParams
}

type batchParams struct {
	_msgpack struct{} `msgpack:",as_array"`

	Commands []wireCommand
	TickCue  bool
}

type wireCommand struct {
	_msgpack struct{} `msgpack:",as_array"`

	Actor    uint32
	Throttle float64
	Brake    float64
	Steer    float64
}

type response struct {
	_msgpack struct{} `msgpack:",as_array"`

	Type    int
	MsgID   uint32
	Error   interface{}
	Results []wireResult
}

type wireResult struct {
	_msgpack struct{} `msgpack:",as_array"`

	Actor uint32
	Error string
}

func encodeCommands(cmds []domain.Command) []wireCommand {
	out := make([]wireCommand, len(cmds))
	for i, c := range cmds {
		out[i] = wireCommand{
			Actor:    uint32(c.Actor),
			Throttle: c.Control.Throttle,
			Brake:    c.Control.Brake,
			Steer:    c.Control.Steer,
		}
	}
	return out
}

func decodeCommands(in []wireCommand) []domain.Command {
	out := make([]domain.Command, len(in))
	for i, c := range in {
		out[i] = domain.Command{
			Actor: domain.ActorID(c.Actor),
			Control: domain.ControlValues{
				Throttle: c.Throttle,
				Brake:    c.Brake,
				Steer:    c.Steer,
			},
		}
	}
	return out
}

func encodeResults(results []domain.CommandResult) []wireResult {
	if results == nil {
		return nil
	}
	out := make([]wireResult, len(results))
	for i, r := range results {
		out[i] = wireResult{Actor: uint32(r.Actor), Error: r.Error}
	}
	return out
}

func decodeResults(in []wireResult) []domain.CommandResult {
	if in == nil {
		return nil
	}
	out := make([]domain.CommandResult, len(in))
	for i, r := range in {
		out[i] = domain.CommandResult{Actor: domain.ActorID(r.Actor), Error: r.Error}
	}
	return out
}

// remoteError renders the error slot of a response. Servers send either a
// string or an arbitrary object.
func remoteError(v interface{}) string {
	switch e := v.(type) {
	case nil:
		return ""
	case string:
		return e
	case []byte:
		return string(e)
	default:
		return fmt.Sprint(e)
	}
}
