package par2

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// ReadFileDescriptions scans one recovery file and returns its distinct file
// descriptions in the order they appear.
func ReadFileDescriptions(ctx context.Context, r ReadStream) ([]*FileDescriptionPacket, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to size recovery file: %w", err)
	}

	seen := make(map[FileID]struct{})
	var descriptors []*FileDescriptionPacket

	_, err = NewScanner(r, size, nil).Scan(ctx, func(f *Frame) error {
		desc, ok := f.Packet.(*FileDescriptionPacket)
		if !ok {
			return nil
		}

		if _, dup := seen[desc.FileID]; dup {
			return nil
		}
		seen[desc.FileID] = struct{}{}
		descriptors = append(descriptors, desc)

		return nil
	})
	if err != nil {
		return descriptors, fmt.Errorf("failed to read file descriptions: %w", err)
	}

	slog.DebugContext(ctx, "Read PAR2 file descriptions", "count", len(descriptors))

	return descriptors, nil
}
