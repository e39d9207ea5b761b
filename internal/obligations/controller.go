package obligations

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/obligation-finder/internal/model"
)

// ErrClosed is returned by SelectYear and Refresh after Close.
var ErrClosed = eris.New("obligations: controller closed")

// Controller owns the dataset, the selected fiscal year and the busy flag.
//
// Every SelectYear issues one request tagged with a sequence number. Only the
// completion carrying the latest sequence number may change state; older
// completions are logged and dropped, so a slow response for a previous
// selection can never overwrite a newer one. Superseded requests are not
// cancelled.
type Controller struct {
	src   Source
	years model.YearRange
	now   func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	seq         uint64
	year        model.FiscalYear
	busy        bool
	idle        chan struct{} // closed while !busy
	dataset     []model.NormalizedRecord
	datasetYear model.FiscalYear
	status      model.FetchStatus
	lastErr     string
	requestID   string
	updatedAt   time.Time
	subs        map[int]chan model.Snapshot
	nextSub     int
	closed      bool
}

// NewController creates an idle controller with initial as the selected year.
// No request is issued until SelectYear or Refresh is called.
func NewController(src Source, years model.YearRange, initial model.FiscalYear) (*Controller, error) {
	if err := years.Check(initial); err != nil {
		return nil, eris.Wrap(err, "obligations: initial year")
	}
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)
	return &Controller{
		src:     src,
		years:   years,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		year:    initial,
		idle:    idle,
		dataset: []model.NormalizedRecord{},
		status:  model.FetchStatusIdle,
		subs:    make(map[int]chan model.Snapshot),
	}, nil
}

// Years returns the selectable range.
func (c *Controller) Years() model.YearRange {
	return c.years
}

// SelectYear makes y the current year and starts fetching it. It returns as
// soon as the request is issued; observe completion via Snapshot, Subscribe
// or Await.
func (c *Controller) SelectYear(y model.FiscalYear) error {
	if err := c.years.Check(y); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectLocked(y)
}

// Refresh re-fetches the currently selected year, superseding any request
// still in flight.
func (c *Controller) Refresh() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectLocked(c.year)
}

// selectLocked issues a request for y. c.mu must be held.
func (c *Controller) selectLocked(y model.FiscalYear) error {
	if c.closed {
		return ErrClosed
	}

	c.seq++
	seq := c.seq
	id := uuid.NewString()

	c.year = y
	if !c.busy {
		c.idle = make(chan struct{})
	}
	c.busy = true
	c.status = model.FetchStatusFetching
	c.lastErr = ""
	c.requestID = id
	c.publishLocked()

	c.wg.Add(1)
	go c.run(seq, y, id)
	return nil
}

func (c *Controller) run(seq uint64, y model.FiscalYear, id string) {
	defer c.wg.Done()

	log := zap.L().With(zap.Int("fiscal_year", int(y)), zap.String("request_id", id))
	log.Info("fetching obligations")

	raw, err := c.src.Fetch(c.ctx, y)
	c.complete(seq, y, raw, err, log)
}

func (c *Controller) complete(seq uint64, y model.FiscalYear, raw []model.RawObligationRecord, err error, log *zap.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if seq != c.seq {
		log.Info("dropping stale response", zap.Int("selected_year", int(c.year)))
		return
	}

	switch {
	case err == nil:
		c.dataset = Normalize(raw)
		c.status = model.FetchStatusReady
		if n := countFallbacks(raw); n > 0 {
			log.Warn("obligated amounts defaulted to zero", zap.Int("count", n), zap.Int("records", len(raw)))
		}
		log.Info("obligations loaded", zap.Int("records", len(c.dataset)))
	case IsLenient(err):
		log.Warn("response carried no results, showing empty dataset", zap.Error(err))
		c.dataset = []model.NormalizedRecord{}
		c.status = model.FetchStatusReady
	default:
		log.Error("fetch obligations failed", zap.Error(err))
		c.dataset = []model.NormalizedRecord{}
		c.status = model.FetchStatusFailed
		c.lastErr = err.Error()
	}

	c.datasetYear = y
	c.busy = false
	c.updatedAt = c.now()
	close(c.idle)
	c.publishLocked()
}

// State returns the current year and busy flag.
func (c *Controller) State() model.RequestState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.RequestState{Year: c.year, Busy: c.busy}
}

// Snapshot returns a copy of the current state with derived totals.
func (c *Controller) Snapshot() model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() model.Snapshot {
	ds := make([]model.NormalizedRecord, len(c.dataset))
	copy(ds, c.dataset)
	return model.Snapshot{
		Dataset:      ds,
		DatasetYear:  c.datasetYear,
		Busy:         c.busy,
		SelectedYear: c.year,
		TotalValue:   TotalValue(ds),
		RecordCount:  RecordCount(ds),
		Status:       c.status,
		Error:        c.lastErr,
		RequestID:    c.requestID,
		UpdatedAt:    c.updatedAt,
	}
}

// Subscribe returns a channel that receives a snapshot after every state
// change. A slow reader only loses intermediate snapshots; the most recent
// one is always delivered. The returned func unsubscribes and closes the
// channel.
func (c *Controller) Subscribe() (<-chan model.Snapshot, func()) {
	ch := make(chan model.Snapshot, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(ch)
			}
		})
	}
}

func (c *Controller) publishLocked() {
	if len(c.subs) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			// Replace the unread snapshot with the newer one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// Await blocks until no request is in flight and returns the snapshot at
// that moment. If ctx ends first, the current snapshot and ctx.Err() are
// returned.
func (c *Controller) Await(ctx context.Context) (model.Snapshot, error) {
	for {
		c.mu.Lock()
		if !c.busy {
			s := c.snapshotLocked()
			c.mu.Unlock()
			return s, nil
		}
		idle := c.idle
		c.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
}

// Close stops accepting selections, cancels in-flight requests and waits for
// their goroutines to exit. Subscriber channels are closed.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.busy {
		c.busy = false
		close(c.idle)
	}
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}
