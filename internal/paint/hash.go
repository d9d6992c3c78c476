package paint

import (
	"encoding/json"
	"strconv"

	"github.com/Faultbox/paintcore/internal/texture"
)

// Hash is a stable key that lets commands reference textures and targets
// without holding them, so they can be stored and replayed later.
type Hash uint32

func (h Hash) String() string {
	return strconv.FormatUint(uint64(h), 10)
}

// StableStringHash hashes s the same way on every run and platform.
func StableStringHash(s string) Hash {
	var h int32 = 23
	for _, c := range s {
		h = h*31 + int32(c)
	}
	return Hash(uint32(h))
}

// Registry is a bidirectional map between resources and their hashes.
type Registry[T comparable] struct {
	byHash map[Hash]T
	byObj  map[T]Hash
}

// NewRegistry creates an empty registry.
func NewRegistry[T comparable]() *Registry[T] {
	return &Registry[T]{
		byHash: make(map[Hash]T),
		byObj:  make(map[T]Hash),
	}
}

// Register associates obj with hash, replacing any previous hash of obj.
// A zero hash only removes the old association.
func (r *Registry[T]) Register(obj T, hash Hash) {
	if existing, ok := r.byObj[obj]; ok {
		if existing == hash {
			return
		}
		delete(r.byObj, obj)
		delete(r.byHash, existing)
	}
	if hash == 0 {
		return
	}
	if prev, ok := r.byHash[hash]; ok {
		delete(r.byObj, prev)
	}
	r.byObj[obj] = hash
	r.byHash[hash] = obj
}

// Unregister removes obj.
func (r *Registry[T]) Unregister(obj T) {
	if h, ok := r.byObj[obj]; ok {
		delete(r.byObj, obj)
		delete(r.byHash, h)
	}
}

// Lookup resolves a hash.
func (r *Registry[T]) Lookup(hash Hash) (T, bool) {
	obj, ok := r.byHash[hash]
	return obj, ok
}

// HashOf returns the hash registered for obj.
func (r *Registry[T]) HashOf(obj T) (Hash, bool) {
	h, ok := r.byObj[obj]
	return h, ok
}

// Len returns the number of registered resources.
func (r *Registry[T]) Len() int {
	return len(r.byHash)
}

// HashedTexture references a texture by instance, by hash, or both. Only the
// hash survives serialization.
type HashedTexture struct {
	Hash     Hash
	instance *texture.Image
}

// TextureRef builds a reference to a live image, picking up its registered
// hash when there is one.
func (c *Context) TextureRef(img *texture.Image) HashedTexture {
	if img == nil {
		return HashedTexture{}
	}
	h, _ := c.textures.HashOf(img)
	return HashedTexture{Hash: h, instance: img}
}

// TextureByHash builds a reference that resolves through the registry.
func TextureByHash(h Hash) HashedTexture {
	return HashedTexture{Hash: h}
}

// IsZero reports whether the reference points at nothing.
func (t HashedTexture) IsZero() bool {
	return t.Hash == 0 && t.instance == nil
}

// Resolve finds the referenced image. A zero reference resolves to nil with
// ok set, meaning "no texture"; a hash that is not registered fails.
func (t HashedTexture) Resolve(c *Context) (*texture.Image, bool) {
	if t.instance != nil {
		return t.instance, true
	}
	if t.Hash == 0 {
		return nil, true
	}
	return c.textures.Lookup(t.Hash)
}

func (t HashedTexture) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint32(t.Hash))
}

func (t *HashedTexture) UnmarshalJSON(data []byte) error {
	var h uint32
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}
	*t = HashedTexture{Hash: Hash(h)}
	return nil
}
