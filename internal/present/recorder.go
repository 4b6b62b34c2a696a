package present

import "sync"

// Recorder keeps every notice and navigation in memory.
type Recorder struct {
	mu          sync.Mutex
	notices     []Notice
	navigations []Navigation
	current     string
}

func NewRecorder(start string) *Recorder {
	return &Recorder{current: start}
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *Recorder) Navigate(nav Navigation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.navigations = append(r.navigations, nav)
	r.current = nav.Path
}

func (r *Recorder) CurrentPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// SetPath moves the recorder without logging a navigation.
func (r *Recorder) SetPath(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = path
}

func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

func (r *Recorder) Navigations() []Navigation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Navigation(nil), r.navigations...)
}
