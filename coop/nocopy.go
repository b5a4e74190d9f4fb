package coop

// noCopy prevents copying of values that embed it. It implements
// sync.Locker so go vet's copylocks check flags copies.
type noCopy struct{}

// Lock is a no-op implementation of sync.Locker.Lock.
func (*noCopy) Lock() {}

// Unlock is a no-op implementation of sync.Locker.Unlock.
func (*noCopy) Unlock() {}
