package crawling

// frontier holds the traversal state of a single discovery run. URLs leave the
// queue in insertion order, so traversal is breadth-first. A URL is queued at
// most once: anything already visited, failed or pending is rejected. Popped
// URLs stay pending until they are marked visited or failed.
type frontier struct {
	visited map[string]struct{}
	failed  map[string]struct{}
	pending map[string]struct{}
	queue   []string
}

func newFrontier(seed string) *frontier {
	f := &frontier{
		visited: make(map[string]struct{}),
		failed:  make(map[string]struct{}),
		pending: make(map[string]struct{}),
	}
	f.push(seed)
	return f
}

// push queues url unless it has been seen before. It reports whether url was added.
func (f *frontier) push(url string) bool {
	if f.seen(url) {
		return false
	}
	f.pending[url] = struct{}{}
	f.queue = append(f.queue, url)
	return true
}

// pop removes up to n URLs from the front of the queue.
func (f *frontier) pop(n int) []string {
	if n > len(f.queue) {
		n = len(f.queue)
	}
	batch := make([]string, n)
	copy(batch, f.queue[:n])
	f.queue = f.queue[n:]
	return batch
}

func (f *frontier) seen(url string) bool {
	if _, ok := f.visited[url]; ok {
		return true
	}
	if _, ok := f.failed[url]; ok {
		return true
	}
	_, ok := f.pending[url]
	return ok
}

func (f *frontier) markVisited(url string) {
	delete(f.pending, url)
	f.visited[url] = struct{}{}
}

func (f *frontier) markFailed(url string) {
	delete(f.pending, url)
	f.failed[url] = struct{}{}
}

func (f *frontier) len() int {
	return len(f.queue)
}
