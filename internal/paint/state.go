package paint

import (
	"github.com/Faultbox/paintcore/internal/texture"
)

// State is one undo or redo step: a full image copy, a list of commands
// that rebuild a delta, or both.
type State struct {
	Image    *texture.Image
	Commands []Command

	ctx *Context
}

func (c *Context) popState() *State {
	s := c.states.Get()
	s.ctx = c
	return s
}

// WriteImage captures a copy of img.
func (s *State) WriteImage(img *texture.Image) {
	s.Clear()
	s.Image = s.ctx.images.GetCopy(img)
}

// WriteCommands captures pooled copies of cmds.
func (s *State) WriteCommands(cmds []Command) {
	s.Clear()
	s.appendCopies(cmds)
}

// WriteBoth captures an image followed by commands to replay on top of it.
func (s *State) WriteBoth(img *texture.Image, cmds []Command) {
	s.Clear()
	s.Image = s.ctx.images.GetCopy(img)
	s.appendCopies(cmds)
}

func (s *State) appendCopies(cmds []Command) {
	for _, cmd := range cmds {
		s.Commands = append(s.Commands, cmd.SpawnCopy())
	}
}

// adopt takes ownership of cmds without copying them.
func (s *State) adopt(cmds []Command) {
	s.Clear()
	s.Commands = append(s.Commands, cmds...)
}

// release hands the commands to the caller and forgets them.
func (s *State) release() []Command {
	cmds := make([]Command, len(s.Commands))
	copy(cmds, s.Commands)
	clear(s.Commands)
	s.Commands = s.Commands[:0]
	return cmds
}

// Clear returns the owned image and commands to their pools.
func (s *State) Clear() {
	if s.Image != nil {
		s.ctx.images.Put(s.Image)
		s.Image = nil
	}
	for i, cmd := range s.Commands {
		cmd.Pool()
		s.Commands[i] = nil
	}
	s.Commands = s.Commands[:0]
}

// Pool clears the state and recycles it.
func (s *State) Pool() {
	s.Clear()
	s.ctx.states.Put(s)
}
