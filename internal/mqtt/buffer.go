package mqtt

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a fixed-capacity FIFO that stores messages while disconnected.
// Not safe for concurrent use; caller must synchronize.
type ringBuffer struct {
	buf      []bufferedMsg
	capacity int
	head     int // next write position
	count    int
	overflow bool // true if any message was dropped since last drain
	dropped  int
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{
		buf:      make([]bufferedMsg, capacity),
		capacity: capacity,
	}
}

// push appends msg, overwriting the oldest entry when full. It reports
// whether this push is the first overflow since the last drain.
func (r *ringBuffer) push(msg bufferedMsg) (firstOverflow bool) {
	if r.count == r.capacity {
		firstOverflow = !r.overflow
		r.overflow = true
		r.dropped++
		// Overwrite oldest: head is already pointing at it
		r.buf[r.head] = msg
		r.head = (r.head + 1) % r.capacity
		return firstOverflow
	}
	r.buf[r.head] = msg
	r.head = (r.head + 1) % r.capacity
	r.count++
	return false
}

func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}

	result := make([]bufferedMsg, r.count)
	// Oldest item is at (head - count) mod capacity
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		result[i] = r.buf[(start+i)%r.capacity]
	}

	r.count = 0
	r.head = 0
	r.overflow = false
	return result
}

func (r *ringBuffer) len() int {
	return r.count
}

// outbox holds what must reach the broker once the connection is back:
// every alarm (bounded) but only the most recent report.
type outbox struct {
	alarms *ringBuffer
	report *bufferedMsg
}

func newOutbox(capacity int) *outbox {
	return &outbox{alarms: newRingBuffer(capacity)}
}

func (o *outbox) setReport(msg bufferedMsg) {
	o.report = &msg
}

// drain returns queued alarms oldest first, followed by the latest report.
func (o *outbox) drain() []bufferedMsg {
	out := o.alarms.drainAll()
	if o.report != nil {
		out = append(out, *o.report)
		o.report = nil
	}
	return out
}
