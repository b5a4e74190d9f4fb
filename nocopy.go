package green

// noCopy may be embedded into structs which must not be copied after
// first use. See go vet's copylocks check.
type noCopy struct{}

// Lock is a no-op used by go vet's copylocks checker.
func (*noCopy) Lock() {}

// Unlock is a no-op used by go vet's copylocks checker.
func (*noCopy) Unlock() {}
