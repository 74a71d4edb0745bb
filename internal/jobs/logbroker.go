package jobs

import "sync"

// subscriberBuffer is how many lines a slow SSE client may lag before new
// lines are skipped for it.
const subscriberBuffer = 256

// LogBroker relays the log lines of running jobs to SSE clients. The
// registry publishes while holding its own lock, so Publish never waits on
// a reader.
type LogBroker struct {
	mu    sync.Mutex
	feeds map[string]*jobFeed
}

// jobFeed is the set of readers attached to one job. done stays set after
// the job ends so a late reader is turned away at once.
type jobFeed struct {
	readers map[int]chan string
	seq     int
	done    bool
}

func newJobFeed() *jobFeed {
	return &jobFeed{readers: make(map[int]chan string)}
}

func (f *jobFeed) detach(id int) {
	if ch, ok := f.readers[id]; ok {
		delete(f.readers, id)
		close(ch)
	}
}

// NewLogBroker returns a broker with no feeds.
func NewLogBroker() *LogBroker {
	return &LogBroker{feeds: make(map[string]*jobFeed)}
}

func (b *LogBroker) feed(jobID string) *jobFeed {
	f, ok := b.feeds[jobID]
	if !ok {
		f = newJobFeed()
		b.feeds[jobID] = f
	}
	return f
}

// Subscribe attaches a reader to jobID. The returned cancel function is safe
// to call more than once. For a finished job the channel comes back closed.
func (b *LogBroker) Subscribe(jobID string) (<-chan string, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f := b.feed(jobID)
	ch := make(chan string, subscriberBuffer)
	if f.done {
		close(ch)
		return ch, func() {}
	}

	id := f.seq
	f.seq++
	f.readers[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		f.detach(id)
	}
}

// Publish hands line to each reader of jobID that has room for it.
func (b *LogBroker) Publish(jobID, line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, ok := b.feeds[jobID]
	if !ok || f.done {
		return
	}
	for _, ch := range f.readers {
		select {
		case ch <- line:
		default:
		}
	}
}

// Close marks jobID finished and closes every attached reader.
func (b *LogBroker) Close(jobID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f := b.feed(jobID)
	f.done = true
	for id := range f.readers {
		f.detach(id)
	}
}
