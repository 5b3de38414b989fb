package contentstore

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// defaultChunkSize is used when GetContentStream is called with a
// non-positive chunk size.
const defaultChunkSize = 32 * 1024

// SetContentStream writes content from an asynchronous chunk sequence. The
// chunk channel is drained until it closes or a chunk carries an error; a
// chunk error aborts the upload and is returned to the caller. Context
// cancellation aborts the transfer.
func (s *service) SetContentStream(ctx context.Context, resourceID uuid.UUID, chunks <-chan Chunk) (int64, error) {
	pr, pw := io.Pipe()

	go func() {
		for {
			select {
			case <-ctx.Done():
				pw.CloseWithError(ctx.Err())
				return
			case chunk, ok := <-chunks:
				if !ok {
					pw.Close()
					return
				}
				if chunk.Err != nil {
					pw.CloseWithError(chunk.Err)
					return
				}
				if _, err := pw.Write(chunk.Data); err != nil {
					// Reader side closed; drain remaining chunks so the
					// producer is not left blocked on a send.
					for {
						select {
						case <-ctx.Done():
							return
						case _, ok := <-chunks:
							if !ok {
								return
							}
						}
					}
				}
			}
		}
	}()

	written, err := s.SetContent(ctx, resourceID, pr)
	// Unblock the feeder if the upload stopped before draining the pipe.
	pr.CloseWithError(err)
	return written, err
}

// GetContentStream reads content as an asynchronous chunk sequence. The
// returned channel is closed after the final chunk; a read failure is
// delivered as a terminal chunk with Err set.
func (s *service) GetContentStream(ctx context.Context, resourceID uuid.UUID, chunkSize int) (<-chan Chunk, error) {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	reader, err := s.GetContent(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		defer reader.Close()

		for {
			buf := make([]byte, chunkSize)
			n, err := io.ReadFull(reader, buf)
			if n > 0 {
				select {
				case out <- Chunk{Data: buf[:n]}:
				case <-ctx.Done():
					return
				}
			}
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return
			}
			if err != nil {
				select {
				case out <- Chunk{Err: err}:
				case <-ctx.Done():
				}
				return
			}
		}
	}()

	return out, nil
}
