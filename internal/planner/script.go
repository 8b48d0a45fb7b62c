package planner

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bft-labs/tickship/internal/domain"
)

// ScriptFile is the YAML layout of a scripted frame sequence:
//
//	loop: true
//	frames:
//	  - actors:
//	      - {id: 7, throttle: 0.8, brake: 0.0, steer: 0.1}
//	  - actors: []
type ScriptFile struct {
	Loop   bool          `yaml:"loop"`
	Frames []ScriptFrame `yaml:"frames"`
}

// ScriptFrame is one frame of a script.
type ScriptFrame struct {
	Actors []ScriptActor `yaml:"actors"`
}

// ScriptActor is one actor entry of a scripted frame.
type ScriptActor struct {
	ID                   uint32 `yaml:"id"`
	domain.ControlValues `yaml:",inline"`
}

// Script replays a fixed list of frames, optionally looping.
type Script struct {
	frames []domain.Frame
	loop   bool
}

// LoadScript reads and validates a YAML script file.
func LoadScript(path string) (*Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return ParseScript(b)
}

// ParseScript parses and validates YAML script content.
// Every frame is checked for duplicate actors up front so the pipeline never
// sees an invalid frame.
func ParseScript(b []byte) (*Script, error) {
	var sf ScriptFile
	if err := yaml.Unmarshal(b, &sf); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}

	frames := make([]domain.Frame, 0, len(sf.Frames))
	for i, fr := range sf.Frames {
		entries := make([]domain.Entry, len(fr.Actors))
		for j, a := range fr.Actors {
			entries[j] = domain.Entry{Actor: domain.ActorID(a.ID), Control: a.ControlValues}
		}
		f, err := domain.NewFrame(entries...)
		if err != nil {
			return nil, fmt.Errorf("script frame %d: %w", i, err)
		}
		frames = append(frames, f)
	}

	return &Script{frames: frames, loop: sf.Loop}, nil
}

// NewScript builds a script from frames already in memory.
func NewScript(loop bool, frames ...domain.Frame) *Script {
	return &Script{frames: frames, loop: loop}
}

// Len returns the number of frames in the script.
func (s *Script) Len() int {
	return len(s.frames)
}

// Next implements ports.FrameSource.
func (s *Script) Next(tick uint64) (domain.Frame, bool) {
	if len(s.frames) == 0 {
		return domain.Frame{}, false
	}
	if tick >= uint64(len(s.frames)) {
		if !s.loop {
			return domain.Frame{}, false
		}
		tick %= uint64(len(s.frames))
	}
	return s.frames[tick], true
}
