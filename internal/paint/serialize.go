package paint

import (
	"encoding/json"
	"fmt"
)

type envelope struct {
	Kind    string          `json:"kind"`
	Command json.RawMessage `json:"command"`
}

// MarshalCommand encodes cmd with its kind. Textures are written as hashes,
// so only registered textures survive a round trip.
func MarshalCommand(cmd Command) ([]byte, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encoding %s command: %w", cmd.Kind(), err)
	}
	return json.Marshal(envelope{Kind: cmd.Kind().String(), Command: body})
}

// UnmarshalCommand decodes a command written by MarshalCommand into a
// pooled instance owned by the caller.
func (c *Context) UnmarshalCommand(data []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding command envelope: %w", err)
	}
	kind, ok := ParseKind(env.Kind)
	if !ok {
		return nil, fmt.Errorf("unknown command kind %q", env.Kind)
	}

	var cmd Command
	switch kind {
	case KindFill:
		f := poolOf[FillCommand](c, KindFill).Get()
		*f = FillCommand{ctx: c}
		cmd = f
	case KindReplace:
		r := poolOf[ReplaceCommand](c, KindReplace).Get()
		*r = ReplaceCommand{ctx: c}
		cmd = r
	case KindReplaceChannels:
		r := poolOf[ReplaceChannelsCommand](c, KindReplaceChannels).Get()
		*r = ReplaceChannelsCommand{ctx: c}
		cmd = r
	case KindSphere:
		s := poolOf[SphereCommand](c, KindSphere).Get()
		*s = SphereCommand{ctx: c}
		cmd = s
	case KindDecal:
		d := poolOf[DecalCommand](c, KindDecal).Get()
		*d = DecalCommand{ctx: c}
		cmd = d
	}

	if err := json.Unmarshal(env.Command, cmd); err != nil {
		cmd.Pool()
		return nil, fmt.Errorf("decoding %s command: %w", kind, err)
	}
	return cmd, nil
}
