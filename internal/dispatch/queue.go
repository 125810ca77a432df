package dispatch

// Queue is an unbounded FIFO of operations with a single producer (the
// indexer) and a single consumer (the dispatcher). Sends never block; a
// pump goroutine buffers whatever the consumer has not yet taken.
type Queue struct {
	in  chan operation
	out chan operation
}

func NewQueue() *Queue {
	q := &Queue{
		in:  make(chan operation),
		out: make(chan operation),
	}
	go q.pump()
	return q
}

// Add enqueues a pending update.
func (q *Queue) Add(update Update) {
	q.in <- operation{kind: opAdd, update: update}
}

// Dispatch asks the consumer to apply everything buffered so far and record
// block as the latest processed block.
func (q *Queue) Dispatch(block int64) {
	q.in <- operation{kind: opDispatch, block: block}
}

// Prune asks the consumer to delete all rows at or above fromBlock.
func (q *Queue) Prune(fromBlock int64) {
	q.in <- operation{kind: opPrune, block: fromBlock}
}

// Close stops the queue. Buffered operations are still delivered before the
// consumer side closes. No sends may follow a Close.
func (q *Queue) Close() {
	close(q.in)
}

func (q *Queue) pump() {
	defer close(q.out)

	var buf []operation
	in := q.in
	for in != nil || len(buf) > 0 {
		var out chan operation
		var head operation
		if len(buf) > 0 {
			out = q.out
			head = buf[0]
		}
		select {
		case op, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			buf = append(buf, op)
		case out <- head:
			buf = buf[1:]
		}
	}
}
