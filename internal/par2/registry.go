package par2

import (
	"fmt"
	"io"
)

// ParseFunc decodes a packet body. The body reader is positioned at 0 and
// bounded to the body length.
type ParseFunc func(body *io.SectionReader) (Packet, error)

// Registry maps packet types to their body parsers.
type Registry struct {
	parsers map[PacketType]ParseFunc
}

func NewRegistry() *Registry {
	return &Registry{parsers: make(map[PacketType]ParseFunc)}
}

// Register adds a parser for t. Registering the same type twice is an error.
func (r *Registry) Register(t PacketType, fn ParseFunc) error {
	if _, exists := r.parsers[t]; exists {
		return fmt.Errorf("%w: duplicate parser for %q", ErrInitialization, t.String())
	}

	r.parsers[t] = fn

	return nil
}

func (r *Registry) Lookup(t PacketType) (ParseFunc, bool) {
	fn, ok := r.parsers[t]
	return fn, ok
}

type kind struct {
	t     PacketType
	parse ParseFunc
}

var builtinKinds = []kind{
	{PacketTypeMain, parseMainPacket},
	{PacketTypeFileDesc, parseFileDescriptionPacket},
	{PacketTypeIFSC, parseSliceChecksumPacket},
	{PacketTypeRecoverySlice, parseRecoverySlicePacket},
	{PacketTypeCreator, parseCreatorPacket},
}

// NewDefaultRegistry returns a registry with every packet kind this package implements.
func NewDefaultRegistry() (*Registry, error) {
	r := NewRegistry()
	for _, k := range builtinKinds {
		if err := r.Register(k.t, k.parse); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// DefaultRegistry is built once at startup.
var DefaultRegistry = mustDefaultRegistry()

func mustDefaultRegistry() *Registry {
	r, err := NewDefaultRegistry()
	if err != nil {
		panic(err)
	}
	return r
}
