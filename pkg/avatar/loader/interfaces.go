package loader

import (
	"context"
	"io"
	"time"

	"github.com/marmos91/contactpic/pkg/avatar"
)

// Directory maps a contact address to the locator of its photo.
type Directory interface {
	// LocatePhoto returns the locator for address. found is false when the
	// contact has no photo; that is not an error.
	LocatePhoto(ctx context.Context, address string) (loc avatar.Locator, found bool, err error)
}

// Opener turns a locator into a byte stream.
type Opener interface {
	// Open returns the photo bytes. It fails with avatar.ErrNotFound when
	// the locator cannot be opened. The loader closes the stream.
	Open(ctx context.Context, loc avatar.Locator) (io.ReadCloser, error)
}

// Codec decodes a photo and scales it to a square of size pixels.
type Codec interface {
	// DecodeAndScale fails with avatar.ErrDecode on corrupt or unsupported
	// input.
	DecodeAndScale(r io.Reader, size int) (*avatar.Image, error)
}

// Source says where a resolved image came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourcePhoto    Source = "photo"
	SourceFallback Source = "fallback"
)

func (s Source) String() string {
	return string(s)
}

// Metrics receives loader events. A nil Metrics records nothing.
type Metrics interface {
	// RecordDispatch counts a fetch handed to the worker pool.
	RecordDispatch()
	// RecordRejected counts a fetch the pool refused.
	RecordRejected()
	// RecordDelivery counts a completed fetch, delivered or dropped as stale.
	RecordDelivery(delivered bool)
	// RecordResolution counts an image handed out, by source.
	RecordResolution(src Source)
	// ObserveFetch records how long producing an image took.
	ObserveFetch(src Source, d time.Duration)
}
