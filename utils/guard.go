package utils

// Guard runs a cleanup function when a function that acquires a resource (e.g. a camera stream)
// fails partway through. Usage:
//
//	guard := NewGuard(func() { stream.Close() })
//	defer guard.OnFail()
//	if err != nil { return err }
//	guard.Success()
//	return nil
type Guard struct {
	OnFail  func()
	success bool
}

// NewGuard returns a Guard that runs onFailCleanup on OnFail unless Success was called first.
func NewGuard(onFailCleanup func()) *Guard {
	ret := &Guard{}
	ret.OnFail = func() {
		if !ret.success {
			onFailCleanup()
		}
	}
	return ret
}

// Success declares the function succeeded and the failure cleanup does not need to run.
func (guard *Guard) Success() {
	guard.success = true
}
