package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clearport/import-console/internal/api/metrics"
	"github.com/clearport/import-console/internal/core/domain"
	"github.com/clearport/import-console/internal/core/ports"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultRetryBackoff   = 500 * time.Millisecond
	laneQueueCapacity     = 16
)

var (
	errNotStarted   = errors.New("coordinator not started")
	errShuttingDown = errors.New("coordinator shutting down")
)

// CoordinatorOptions tunes the update coordinator. Zero values fall back to
// the defaults above.
type CoordinatorOptions struct {
	// RequestTimeout bounds each individual store call.
	RequestTimeout time.Duration
	// RetryBackoff is the fixed wait before the single retry of a transient
	// failure.
	RetryBackoff time.Duration
}

// Coordinator is the only writer path to the shipment store. It serializes
// updates per shipment id on a dedicated lane (a worker goroutine reading a
// FIFO channel), so writes for one shipment never overlap while independent
// shipments proceed in parallel. The local snapshot is mutated optimistically
// at acceptance; transient store failures are retried exactly once.
type Coordinator struct {
	store    ports.ShipmentStore
	notifier ports.Notifier
	audit    ports.UpdateAuditLog
	log      zerolog.Logger
	opts     CoordinatorOptions

	mu      sync.Mutex
	baseCtx context.Context
	lanes   map[string]chan *pendingUpdate
	locals  map[string]*shipmentLocal
}

// shipmentLocal is the coordinator-owned view of one shipment: the optimistic
// snapshot plus the failure flags surfaced to the UI. Failure state is scoped
// per shipment so one broken record never blocks edits elsewhere.
type shipmentLocal struct {
	shipment     *domain.Shipment
	inFlight     int
	failed       bool
	failedFields map[domain.Field]struct{}
	lastErr      string
}

// pendingUpdate is one accepted, unsettled partial mutation.
// Lifecycle: Created -> Sent -> {Succeeded | RetryScheduled -> Sent(attempt=1)
// -> {Succeeded | Failed}}; Succeeded optionally continues into verification.
type pendingUpdate struct {
	id          string
	in          ports.ApplyInput
	attempt     int
	submittedAt time.Time
	reply       chan applyOutcome

	// done guards the terminal transition: exactly one of settle, the
	// shutdown drain, or the caller's abandon path wins.
	done uint32
}

// claim reports whether the caller is the one to settle this update. Every
// claimer must either send on reply or be the Apply goroutine itself.
func (pu *pendingUpdate) claim() bool {
	return atomic.CompareAndSwapUint32(&pu.done, 0, 1)
}

type applyOutcome struct {
	res *ports.ApplyResult
	err error
}

// NewCoordinator wires the coordinator. notifier and audit may be nil.
func NewCoordinator(store ports.ShipmentStore, notifier ports.Notifier, audit ports.UpdateAuditLog, log zerolog.Logger, opts CoordinatorOptions) *Coordinator {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	return &Coordinator{
		store:    store,
		notifier: notifier,
		audit:    audit,
		log:      log,
		opts:     opts,
		lanes:    make(map[string]chan *pendingUpdate),
		locals:   make(map[string]*shipmentLocal),
	}
}

// Start binds the coordinator to its lifecycle context. Lane workers spawned
// afterwards stop when ctx is cancelled; accepted updates still run to a
// terminal state.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseCtx = ctx
}

// Apply accepts one partial update and blocks until it settles. Acceptance
// order per shipment is the order writes reach the store.
func (c *Coordinator) Apply(ctx context.Context, in ports.ApplyInput) (*ports.ApplyResult, error) {
	if in.ShipmentID == "" {
		return nil, &domain.ValidationError{Reason: "shipment id required"}
	}
	if in.Patch.IsEmpty() {
		return nil, domain.ErrEmptyPatch
	}

	pu := &pendingUpdate{
		id:          uuid.NewString(),
		in:          in,
		submittedAt: time.Now().UTC(),
		reply:       make(chan applyOutcome, 1),
	}

	c.mu.Lock()
	if c.baseCtx == nil {
		c.mu.Unlock()
		return nil, errNotStarted
	}
	base := c.baseCtx
	local := c.localLocked(in.ShipmentID)
	in.Patch.ApplyTo(local.shipment) // optimistic: UI never waits on the network
	local.inFlight++
	lane := c.laneLocked(in.ShipmentID)
	c.mu.Unlock()

	metrics.UpdatesInFlight.Inc()

	c.log.Debug().
		Str("update_id", pu.id).
		Str("shipment_id", in.ShipmentID).
		Strs("fields", fieldNames(in.Patch.Fields())).
		Msg("update accepted")

	// A full lane blocks the caller; updates are never dropped or reordered.
	select {
	case lane <- pu:
	case <-ctx.Done():
		if pu.claim() {
			c.abandon(pu, ctx.Err())
		}
		return nil, ctx.Err()
	case <-base.Done():
		if pu.claim() {
			c.abandon(pu, errShuttingDown)
		}
		return nil, &domain.TransientError{Err: errShuttingDown}
	}

	// The lane worker exits when the base context is cancelled; without the
	// second case an update enqueued during shutdown would strand its caller.
	select {
	case out := <-pu.reply:
		return out.res, out.err
	case <-base.Done():
		if pu.claim() {
			c.abandon(pu, errShuttingDown)
			return nil, &domain.TransientError{Err: errShuttingDown}
		}
		// Lost the race: a settle is already underway and will reply.
		out := <-pu.reply
		return out.res, out.err
	}
}

// Verify re-reads the shipment and compares the patch's staged values for the
// given fields against server truth. On divergence it issues exactly one
// repair write carrying the same patch; repair failures are logged, never
// surfaced. Returns true when the server matched.
//
// The repair write bypasses the lane, so callers must ensure no update for
// the shipment is in flight; ApplyInput.VerifyFields covers the post-write
// case by running this check on the lane itself.
func (c *Coordinator) Verify(ctx context.Context, shipmentID string, patch *domain.Patch, fields []domain.Field) (bool, error) {
	readCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	server, err := c.store.Get(readCtx, shipmentID)
	if err != nil {
		return false, err
	}

	mismatched := patch.Mismatches(server, fields)
	if len(mismatched) == 0 {
		metrics.VerificationChecksTotal.WithLabelValues("match").Inc()
		return true, nil
	}

	metrics.VerificationChecksTotal.WithLabelValues("mismatch").Inc()
	c.log.Warn().
		Str("shipment_id", shipmentID).
		Strs("fields", fieldNames(mismatched)).
		Msg("server state diverged after acknowledged write, repairing")

	repairCtx, cancelRepair := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancelRepair()
	if _, err := c.store.ApplyPatch(repairCtx, shipmentID, patch); err != nil {
		metrics.VerificationRepairsTotal.WithLabelValues("error").Inc()
		c.log.Error().Err(err).Str("shipment_id", shipmentID).Msg("repair write failed")
		return false, nil
	}
	metrics.VerificationRepairsTotal.WithLabelValues("ok").Inc()
	c.log.Info().Str("shipment_id", shipmentID).Msg("repair write applied")
	return false, nil
}

// Seed installs the local snapshot for a shipment, keeping any existing
// failure flags.
func (c *Coordinator) Seed(shipment *domain.Shipment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if local, ok := c.locals[shipment.ID]; ok {
		local.shipment = shipment.Clone()
		return
	}
	c.locals[shipment.ID] = &shipmentLocal{
		shipment:     shipment.Clone(),
		failedFields: make(map[domain.Field]struct{}),
	}
}

// Local returns a deep copy of the optimistic local snapshot.
func (c *Coordinator) Local(shipmentID string) (*domain.Shipment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	local, ok := c.locals[shipmentID]
	if !ok {
		return nil, false
	}
	return local.shipment.Clone(), true
}

// SetDerivedStatus records a recomputed status label on the local snapshot.
// The label is a projection; it never goes through the write path here.
func (c *Coordinator) SetDerivedStatus(shipmentID string, label domain.StatusLabel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if local, ok := c.locals[shipmentID]; ok {
		local.shipment.DetailedStatus = label
	}
}

// InFlight reports whether any update for the shipment is unsettled.
func (c *Coordinator) InFlight(shipmentID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	local, ok := c.locals[shipmentID]
	return ok && local.inFlight > 0
}

// UpdateState returns the per-shipment failure view for the UI.
func (c *Coordinator) UpdateState(shipmentID string) ports.UpdateState {
	c.mu.Lock()
	defer c.mu.Unlock()
	local, ok := c.locals[shipmentID]
	if !ok {
		return ports.UpdateState{}
	}
	state := ports.UpdateState{
		InFlight:  local.inFlight > 0,
		Failed:    local.failed,
		LastError: local.lastErr,
	}
	if len(local.failedFields) > 0 {
		fields := make([]domain.Field, 0, len(local.failedFields))
		for f := range local.failedFields {
			fields = append(fields, f)
		}
		state.FailedFields = fieldNames(sortFields(fields))
	}
	return state
}

// ── internals ─────────────────────────────────────────────────────────────────

func (c *Coordinator) localLocked(shipmentID string) *shipmentLocal {
	local, ok := c.locals[shipmentID]
	if !ok {
		local = &shipmentLocal{
			shipment:     &domain.Shipment{ID: shipmentID},
			failedFields: make(map[domain.Field]struct{}),
		}
		c.locals[shipmentID] = local
	}
	return local
}

// laneLocked returns the shipment's FIFO lane, spawning its worker on first
// use. Lanes live for the coordinator's lifetime; the set is bounded by the
// shipments touched in one console session.
func (c *Coordinator) laneLocked(shipmentID string) chan *pendingUpdate {
	lane, ok := c.lanes[shipmentID]
	if !ok {
		lane = make(chan *pendingUpdate, laneQueueCapacity)
		c.lanes[shipmentID] = lane
		go c.runLane(c.baseCtx, shipmentID, lane)
	}
	return lane
}

func (c *Coordinator) runLane(ctx context.Context, shipmentID string, lane <-chan *pendingUpdate) {
	for {
		select {
		case <-ctx.Done():
			c.drainLane(shipmentID, lane)
			return
		case pu := <-lane:
			c.process(ctx, pu)
		}
	}
}

// drainLane fails everything still queued when the coordinator shuts down, so
// every accepted update reaches a terminal state and no caller is left
// waiting on a reply that would never come.
func (c *Coordinator) drainLane(shipmentID string, lane <-chan *pendingUpdate) {
	for {
		select {
		case pu := <-lane:
			c.settle(context.Background(), pu, nil, &domain.TransientError{Err: errShuttingDown}, time.Now())
		default:
			c.log.Debug().Str("shipment_id", shipmentID).Msg("lane drained")
			return
		}
	}
}

func (c *Coordinator) process(ctx context.Context, pu *pendingUpdate) {
	started := time.Now()

	server, err := c.send(ctx, pu)
	if err != nil && domain.IsTransient(err) {
		metrics.UpdateRetriesTotal.Inc()
		c.log.Warn().Err(err).
			Str("update_id", pu.id).
			Str("shipment_id", pu.in.ShipmentID).
			Dur("backoff", c.opts.RetryBackoff).
			Msg("transient store failure, retrying once")

		select {
		case <-time.After(c.opts.RetryBackoff):
		case <-ctx.Done():
			c.settle(ctx, pu, nil, ctx.Err(), started)
			return
		}
		pu.attempt = 1
		server, err = c.send(ctx, pu)
	}

	c.settle(ctx, pu, server, err, started)

	// Verification runs after the caller is unblocked but still on the lane,
	// so the re-read and any repair stay serialized with later updates.
	if err == nil && len(pu.in.VerifyFields) > 0 {
		if _, verr := c.Verify(ctx, pu.in.ShipmentID, pu.in.Patch, pu.in.VerifyFields); verr != nil {
			c.log.Warn().Err(verr).
				Str("shipment_id", pu.in.ShipmentID).
				Msg("verification read failed")
		}
	}
}

func (c *Coordinator) send(ctx context.Context, pu *pendingUpdate) (*domain.Shipment, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	server, err := c.store.ApplyPatch(callCtx, pu.in.ShipmentID, pu.in.Patch)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !domain.IsTransient(err) {
		err = &domain.TransientError{Err: err}
	}
	return server, err
}

func (c *Coordinator) settle(ctx context.Context, pu *pendingUpdate, server *domain.Shipment, err error, started time.Time) {
	if !pu.claim() {
		// The caller's shutdown path already settled this update.
		return
	}
	fields := pu.in.Patch.Fields()

	c.mu.Lock()
	local := c.localLocked(pu.in.ShipmentID)
	local.inFlight--
	if err != nil {
		local.failed = true
		local.lastErr = err.Error()
		for _, f := range fields {
			local.failedFields[f] = struct{}{}
		}
	} else {
		local.failed = false
		local.lastErr = ""
		for _, f := range fields {
			delete(local.failedFields, f)
		}
	}
	c.mu.Unlock()

	metrics.UpdatesInFlight.Dec()

	if err != nil {
		class := "permanent"
		if domain.IsTransient(err) {
			class = "transient"
		}
		metrics.UpdatesFailedTotal.WithLabelValues(class).Inc()
		metrics.UpdateDuration.WithLabelValues("failed").Observe(time.Since(started).Seconds())
		c.log.Error().Err(err).
			Str("update_id", pu.id).
			Str("shipment_id", pu.in.ShipmentID).
			Int("attempts", pu.attempt+1).
			Str("class", class).
			Msg("update failed")
	} else {
		for _, f := range fields {
			metrics.UpdatesAppliedTotal.WithLabelValues(string(f)).Inc()
			if c.notifier != nil {
				c.notifier.FieldUpdated(ctx, pu.in.ShipmentID, f)
			}
		}
		metrics.UpdateDuration.WithLabelValues("succeeded").Observe(time.Since(started).Seconds())
		c.log.Info().
			Str("update_id", pu.id).
			Str("shipment_id", pu.in.ShipmentID).
			Strs("fields", fieldNames(fields)).
			Int("attempts", pu.attempt+1).
			Msg("update applied")
	}

	c.appendAudit(ctx, pu, err)

	out := applyOutcome{err: err}
	if err == nil {
		out.res = &ports.ApplyResult{UpdateID: pu.id, Shipment: server, Attempts: pu.attempt + 1}
	}
	pu.reply <- out
}

// abandon rolls back the acceptance bookkeeping for an update the lane will
// never settle (coordinator shutting down, caller cancelled while the lane
// was full). Only a successful claim may call it. The optimistic mutation is
// kept; the failure flag tells the operator the edit did not persist.
func (c *Coordinator) abandon(pu *pendingUpdate, cause error) {
	c.mu.Lock()
	local := c.localLocked(pu.in.ShipmentID)
	local.inFlight--
	local.failed = true
	local.lastErr = "update not accepted: " + cause.Error()
	for _, f := range pu.in.Patch.Fields() {
		local.failedFields[f] = struct{}{}
	}
	c.mu.Unlock()
	metrics.UpdatesInFlight.Dec()
}

func (c *Coordinator) appendAudit(ctx context.Context, pu *pendingUpdate, err error) {
	if c.audit == nil {
		return
	}
	event := &domain.UpdateEvent{
		UpdateID:    pu.id,
		ShipmentID:  pu.in.ShipmentID,
		Fields:      fieldNames(pu.in.Patch.Fields()),
		Outcome:     domain.UpdateSucceeded,
		Attempts:    pu.attempt + 1,
		SubmittedAt: pu.submittedAt,
		SettledAt:   time.Now().UTC(),
	}
	if err != nil {
		event.Outcome = domain.UpdateFailed
		event.Error = err.Error()
	}
	if auditErr := c.audit.Append(ctx, event); auditErr != nil {
		c.log.Warn().Err(auditErr).Str("update_id", pu.id).Msg("failed to append update audit event")
	}
}

func fieldNames(fields []domain.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return names
}

func sortFields(fields []domain.Field) []domain.Field {
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}
