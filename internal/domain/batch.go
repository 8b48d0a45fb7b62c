package domain

import "github.com/google/uuid"

// Batch is the ordered set of commands built from one Frame.
// A batch is rebuilt from scratch every tick and never reused.
type Batch struct {
	// ID uniquely identifies the batch in logs and diagnostics
	ID uuid.UUID

	// Sequence is the messenger sequence of the frame the batch was built from
	Sequence uint64

	// Commands are in frame order
	Commands []Command
}

// NewBatch creates an empty batch with room for capacity commands.
func NewBatch(sequence uint64, capacity int) *Batch {
	return &Batch{
		ID:       uuid.New(),
		Sequence: sequence,
		Commands: make([]Command, 0, capacity),
	}
}

// Add appends a command to the batch.
func (b *Batch) Add(cmd Command) {
	b.Commands = append(b.Commands, cmd)
}

// Size returns the number of commands in the batch.
func (b *Batch) Size() int {
	return len(b.Commands)
}

// Empty returns true if the batch has no commands.
func (b *Batch) Empty() bool {
	return len(b.Commands) == 0
}

// Actors returns the actor addressed by each command, in order.
func (b *Batch) Actors() []ActorID {
	ids := make([]ActorID, len(b.Commands))
	for i, c := range b.Commands {
		ids[i] = c.Actor
	}
	return ids
}
