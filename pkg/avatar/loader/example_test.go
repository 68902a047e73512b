package loader

import (
	"fmt"

	"github.com/marmos91/contactpic/pkg/avatar"
	"github.com/marmos91/contactpic/pkg/avatar/cache"
	"github.com/marmos91/contactpic/pkg/avatar/slot"
)

func ExampleLoader_Load() {
	dir := newFakeDirectory()
	dir.photos["alice@example.com"] = "alice.png"

	l, err := New(Options{
		PictureSize: 8,
		Directory:   dir,
		Opener:      fakeOpener{},
		Codec:       fakeCodec{},
		Cache:       cache.New(1 << 20),
	})
	if err != nil {
		panic(err)
	}

	photo := photoImage("alice.png", 8)
	shown := make(chan string, 4)
	h := l.Register(slot.SinkFunc(func(img *avatar.Image) {
		if photo.Equal(img) {
			shown <- "photo"
		} else {
			shown <- "placeholder"
		}
	}))

	l.Load(avatar.NewIdentity("alice@example.com", "Alice"), h)

	// Close drains the fetch and its delivery.
	_ = l.Close()
	close(shown)
	for s := range shown {
		fmt.Println(s)
	}
	// Output:
	// placeholder
	// photo
}
