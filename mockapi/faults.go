package mockapi

import (
	"net/http"
	"sync"
	"time"
)

// Fault makes matching requests fail or stall. Tests use it to exercise
// rollback and fail-closed paths against a real server.
type Fault struct {
	Method string // empty matches any method
	Path   string // exact request path, without the API prefix
	// Status and Message form the error response. Status 0 drops the
	// connection instead so the client sees a transport failure.
	Status  int
	Message string
	Delay   time.Duration
	// Times limits how often the fault fires; 0 means until cleared.
	Times int
}

type faults struct {
	mu     sync.Mutex
	active []*Fault
}

func (f *faults) add(fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = append(f.active, &fault)
}

func (f *faults) clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = nil
}

// match returns the first fault for the request and consumes one use of it.
func (f *faults) match(method, path string) (Fault, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, fault := range f.active {
		if fault.Path != path || (fault.Method != "" && fault.Method != method) {
			continue
		}
		matched := *fault
		if fault.Times > 0 {
			fault.Times--
			if fault.Times == 0 {
				f.active = append(f.active[:i], f.active[i+1:]...)
			}
		}
		return matched, true
	}
	return Fault{}, false
}

// FaultMiddleware applies injected faults before the handler runs.
func (s *Server) FaultMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fault, ok := s.faults.match(r.Method, trimAPIPrefix(r.URL.Path))
		if !ok {
			next(w, r)
			return
		}
		if fault.Delay > 0 {
			select {
			case <-time.After(fault.Delay):
			case <-r.Context().Done():
				return
			}
		}
		if fault.Status == 0 {
			// net/http closes the connection without a response.
			panic(http.ErrAbortHandler)
		}
		writeError(w, fault.Status, fault.Message)
	}
}
