package par2

import (
	"bytes"
	"io"
)

// CreatorPacket names the client that produced a recovery set.
type CreatorPacket struct {
	Client string
}

func (c *CreatorPacket) Type() PacketType { return PacketTypeCreator }

func (c *CreatorPacket) MarshalBody() ([]byte, error) {
	name := []byte(c.Client)
	body := make([]byte, (len(name)+3)&^3)
	copy(body, name)
	return body, nil
}

func parseCreatorPacket(body *io.SectionReader) (Packet, error) {
	raw := make([]byte, body.Size())
	if _, err := io.ReadFull(body, raw); err != nil {
		return nil, err
	}
	return &CreatorPacket{Client: string(bytes.TrimRight(raw, "\x00"))}, nil
}
