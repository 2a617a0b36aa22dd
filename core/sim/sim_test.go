package sim

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/robotaxi/core/charging"
	"github.com/kilianp07/robotaxi/core/command"
	"github.com/kilianp07/robotaxi/core/dispatch"
	"github.com/kilianp07/robotaxi/core/economics"
	"github.com/kilianp07/robotaxi/core/model"
	"github.com/kilianp07/robotaxi/core/oracle"
	"github.com/kilianp07/robotaxi/core/triplog"
	"github.com/kilianp07/robotaxi/infra/roadnet"
)

type idleDispatcher struct{}

func (idleDispatcher) Name() string { return "idle" }
func (idleDispatcher) Due(int) bool { return false }
func (idleDispatcher) Match(context.Context, *dispatch.Pass) ([]dispatch.Match, error) {
	return nil, nil
}

type neverCharge struct{}

func (neverCharge) Name() string                                    { return "never" }
func (neverCharge) ShouldCharge(*model.Taxi, charging.Context) bool { return false }

type memLog struct {
	mu   sync.Mutex
	recs []triplog.Record
}

func (m *memLog) Append(_ context.Context, recs ...triplog.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, recs...)
	return nil
}

func (m *memLog) Query(_ context.Context, q triplog.Query) ([]triplog.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []triplog.Record
	for _, r := range m.recs {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memLog) Close() error { return nil }

func gridNetwork(t *testing.T) *roadnet.Network {
	t.Helper()
	n, err := roadnet.New(roadnet.Grid(3, 3, 100), 0)
	require.NoError(t, err)
	return n
}

// edgeBlocker refuses every route that starts on a blocked edge.
type edgeBlocker struct {
	*roadnet.Network
	blocked map[string]bool
}

func (b *edgeBlocker) FindRoute(ctx context.Context, from, to model.Location) (model.Route, error) {
	if b.blocked[from.Edge] {
		return model.Route{}, nil
	}
	return b.Network.FindRoute(ctx, from, to)
}

type closeCounter struct {
	*roadnet.Network
	closes int
}

func (c *closeCounter) Close() error {
	c.closes++
	return c.Network.Close()
}

type chargeBelowFull struct{}

func (chargeBelowFull) Name() string { return "below_full" }
func (chargeBelowFull) ShouldCharge(t *model.Taxi, _ charging.Context) bool {
	return t.Battery.Level < t.Battery.Capacity
}

func newEngine(t *testing.T, cfg Config, o oracle.Oracle, d Deps) *Engine {
	t.Helper()
	e := buildEngine(t, cfg, o, d)
	require.NoError(t, e.Init(context.Background()))
	return e
}

func buildEngine(t *testing.T, cfg Config, o oracle.Oracle, d Deps) *Engine {
	t.Helper()
	ecfg := economics.Config{}
	ecfg.SetDefaults()
	rng := rand.New(rand.NewSource(cfg.Seed))
	d.Oracle = o
	if d.Dispatcher == nil {
		d.Dispatcher = dispatch.NewBaseline(rng)
	}
	if d.Charging == nil {
		d.Charging = neverCharge{}
	}
	d.Pricing = economics.NewPricing(ecfg, rng)
	d.Tariff = ecfg.Tariff
	e, err := New(cfg, d)
	require.NoError(t, err)
	return e
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{NumTaxis: 1, NumReservations: 1}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 50.0, cfg.BatteryCapacity)
	assert.Equal(t, 1800.0, cfg.Cooldown)

	for name, c := range map[string]Config{
		"no taxis":         {NumReservations: 1},
		"no reservations":  {NumTaxis: 1},
		"negative charger": {NumTaxis: 1, NumReservations: 1, NumChargers: -1},
		"negative step":    {NumTaxis: 1, NumReservations: 1, StepLength: -1},
	} {
		c.SetDefaults()
		assert.Error(t, c.Validate(), name)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{NumTaxis: 1, NumReservations: 1}, Deps{})
	assert.Error(t, err)
}

func TestInitPopulatesFleet(t *testing.T) {
	e := newEngine(t, Config{Seed: 1, NumTaxis: 3, NumReservations: 5, NumChargers: 2}, gridNetwork(t), Deps{
		ChargerSites: []model.Location{{Edge: "j0_0>j0_1", Offset: 10}},
	})
	assert.Equal(t, 3, e.fleet.Taxis.Len())
	assert.Equal(t, 5, e.fleet.Reservations.Len())
	assert.Equal(t, 2, e.fleet.Chargers.Len())
	assert.Equal(t, model.Location{Edge: "j0_0>j0_1", Offset: 10}, e.fleet.Chargers.All()[0].Location)
	for _, r := range e.fleet.Reservations.Sorted() {
		assert.Equal(t, model.ReservationPending, r.State)
		assert.True(t, r.Route.Feasible())
		assert.NotEqual(t, r.Pickup.Edge, r.Dropoff.Edge)
	}
	for _, tx := range e.fleet.Taxis.Sorted() {
		assert.Equal(t, e.cfg.BatteryCapacity, tx.Battery.Level)
	}
	snap, ok := e.Reports().Latest()
	require.True(t, ok)
	assert.Equal(t, 3, snap.Taxis[model.TaxiIdle.String()])
}

func TestBatteryExhaustedWhileTransporting(t *testing.T) {
	n := gridNetwork(t)
	log := &memLog{}
	e := newEngine(t, Config{Seed: 3, NumTaxis: 1, NumReservations: 1}, n, Deps{TripLog: log})
	ctx := context.Background()

	tx := e.fleet.Taxis.Sorted()[0]
	r := e.fleet.Reservations.Sorted()[0]
	pos, err := n.Position(tx.ID)
	require.NoError(t, err)
	dropoff := model.Location{Edge: "j2_1>j2_2", Offset: 50}
	if pos.Edge == dropoff.Edge {
		dropoff.Edge = "j0_0>j1_0"
	}
	rt, err := n.FindRoute(ctx, pos, dropoff)
	require.NoError(t, err)
	require.NoError(t, n.Drive(tx.ID, rt, dropoff))

	r.Dropoff = dropoff
	r.State = model.ReservationInTransit
	r.TaxiID = tx.ID
	tx.State = model.TaxiTransporting
	tx.ReservationID = r.ID
	tx.Destination = dropoff
	tx.Battery.Level = 0.001

	require.NoError(t, e.Step(ctx))

	assert.Equal(t, model.ReservationWaiting, r.State)
	assert.Equal(t, dropoff, r.Dropoff)
	assert.Empty(t, r.TaxiID)
	assert.True(t, r.Resumed)
	assert.True(t, r.Route.Feasible())
	here, err := n.Position(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, here, r.Pickup)

	assert.Equal(t, model.TaxiOutOfCommission, tx.State)
	assert.Equal(t, model.OutTowed, tx.OutReason)
	assert.Equal(t, e.Now()+e.cfg.Cooldown, tx.ReturnAt)
	assert.Empty(t, tx.ReservationID)
	assert.Zero(t, tx.Battery.Level)
	assert.Len(t, tx.Ledger.Tows, 1)

	tows, err := log.Query(ctx, triplog.Query{Kind: triplog.KindTow})
	require.NoError(t, err)
	require.Len(t, tows, 1)
	assert.Equal(t, tx.ID, tows[0].TaxiID)
	assert.Equal(t, e.tariff.TowFee+tx.Ledger.Tows[0].EnergyCost, tows[0].Amount)
}

func TestRemoveTaxiWhileAllTransporting(t *testing.T) {
	e := newEngine(t, Config{Seed: 4, NumTaxis: 2, NumReservations: 1}, gridNetwork(t), Deps{Dispatcher: idleDispatcher{}})
	for _, tx := range e.fleet.Taxis.Sorted() {
		tx.State = model.TaxiTransporting
	}
	e.Queue().Push(command.RemoveTaxis{Count: 1}, "test")

	require.NoError(t, e.Step(context.Background()))

	res := e.LastResults()
	require.Len(t, res, 1)
	assert.Equal(t, 1, res[0].Requested)
	assert.Equal(t, 0, res[0].Applied)
	assert.Equal(t, 2, e.fleet.Taxis.Len())
	assert.Equal(t, 1, e.Snapshot().Underfulfilled)
}

func TestCommandsApplyAtTickStart(t *testing.T) {
	e := newEngine(t, Config{Seed: 5, NumTaxis: 2, NumReservations: 2, NumChargers: 3}, gridNetwork(t), Deps{Dispatcher: idleDispatcher{}})
	q := e.Queue()
	q.Push(command.AddTaxis{Count: 2}, "test")
	q.Push(command.AddReservations{Count: 3}, "test")
	q.Push(command.RemoveChargers{Count: 5}, "test")
	q.Push(command.AddChargers{Count: 1}, "test")

	require.NoError(t, e.Step(context.Background()))

	res := e.LastResults()
	require.Len(t, res, 4)
	assert.Equal(t, 2, res[0].Applied)
	assert.Equal(t, 3, res[1].Applied)
	assert.Equal(t, 3, res[2].Applied)
	assert.Equal(t, 1, res[3].Applied)
	assert.Equal(t, 4, e.fleet.Taxis.Len())
	assert.Equal(t, 5, e.fleet.Reservations.Len())
	assert.Equal(t, 4, e.fleet.Chargers.Len())
	assert.Len(t, e.fleet.Chargers.Active(), 1)
	assert.Zero(t, q.Len())
}

func TestRemoveReservationsSkipsPending(t *testing.T) {
	e := newEngine(t, Config{Seed: 6, NumTaxis: 1, NumReservations: 3}, gridNetwork(t), Deps{Dispatcher: idleDispatcher{}})
	rs := e.fleet.Reservations.Sorted()
	for _, r := range rs[1:] {
		r.Activate(e.Now())
	}
	e.Queue().Push(command.RemoveReservations{Count: 5}, "test")

	require.NoError(t, e.Step(context.Background()))

	assert.Equal(t, 2, e.LastResults()[0].Applied)
	_, err := e.fleet.Reservations.Get(rs[0].ID)
	assert.NoError(t, err)
}

func TestUnreachableReservationIsReinitialized(t *testing.T) {
	n := gridNetwork(t)
	e := newEngine(t, Config{Seed: 7, NumTaxis: 1, NumReservations: 1}, n, Deps{Dispatcher: idleDispatcher{}})
	r := e.fleet.Reservations.Sorted()[0]
	r.MarkUnreachable()

	require.NoError(t, e.Step(context.Background()))

	assert.Equal(t, model.ReservationWaiting, r.State)
	assert.Equal(t, e.Now(), r.Depart)
	assert.NotEqual(t, r.Pickup.Edge, r.Dropoff.Edge)
	rt, err := n.FindRoute(context.Background(), r.Pickup, r.Dropoff)
	require.NoError(t, err)
	assert.True(t, rt.Feasible())
	assert.InDelta(t, rt.Length, r.Route.Length, 1e-9)
	assert.Equal(t, 1, e.pricing.Count())
}

func TestTripCompletes(t *testing.T) {
	log := &memLog{}
	e := newEngine(t, Config{Seed: 8, NumTaxis: 1, NumReservations: 1, ReportEvery: 1}, gridNetwork(t), Deps{TripLog: log})
	r := e.fleet.Reservations.Sorted()[0]
	r.Activate(e.Now())
	ctx := context.Background()

	for i := 0; i < 500 && e.fleet.Completed == 0; i++ {
		require.NoError(t, e.Step(ctx))
	}

	require.Equal(t, 1, e.fleet.Completed)
	_, err := e.fleet.Reservations.Get(r.ID)
	assert.Error(t, err)
	tx := e.fleet.Taxis.Sorted()[0]
	require.Len(t, tx.Ledger.Trips, 1)
	assert.Equal(t, r.ID, tx.Ledger.Trips[0].ReservationID)
	assert.Len(t, e.fleet.WaitSamples, 1)
	assert.Less(t, tx.Battery.Level, tx.Battery.Capacity)
	assert.Greater(t, tx.Distance, 0.0)

	require.NoError(t, e.Step(ctx))
	trips, err := log.Query(ctx, triplog.Query{Kind: triplog.KindTrip})
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, e.tariff.TripEarnings(tx.Ledger.Trips[0]), trips[0].Amount)
}

func TestFleetInvariantsHoldAcrossTicks(t *testing.T) {
	e := newEngine(t, Config{
		Seed:             9,
		NumTaxis:         4,
		NumReservations:  40,
		NumChargers:      2,
		BatteryCapacity:  1,
		ConsumptionPerKm: 0.2,
		Cooldown:         200,
		ReportEvery:      25,
	}, gridNetwork(t), Deps{Charging: charging.NewBaseline(20, 40, rand.New(rand.NewSource(9)))})
	ctx := context.Background()
	sub := e.Bus().Subscribe()
	defer e.Bus().Unsubscribe(sub)

	for i := 0; i < 1500; i++ {
		if i%300 == 0 {
			e.Queue().Push(command.AddReservations{Count: 6}, "test")
		}
		require.NoError(t, e.Step(ctx))
		holders := map[string]int{}
		for _, tx := range e.fleet.Taxis.Sorted() {
			require.GreaterOrEqual(t, tx.Battery.Level, 0.0)
			require.LessOrEqual(t, tx.Battery.Level, tx.Battery.Capacity)
			if tx.ReservationID != "" {
				holders[tx.ReservationID]++
			}
			if tx.State != model.TaxiTransporting {
				continue
			}
			r, err := e.fleet.Reservations.Get(tx.ReservationID)
			require.NoError(t, err, "tick %d taxi %s", i, tx.ID)
			require.Equal(t, model.ReservationInTransit, r.State)
			require.Equal(t, tx.ID, r.TaxiID)
		}
		for id, n := range holders {
			require.Equal(t, 1, n, "reservation %s held by %d taxis", id, n)
		}
		for _, r := range e.fleet.Reservations.Sorted() {
			if r.State == model.ReservationAssigned || r.State == model.ReservationInTransit {
				require.Equal(t, 1, holders[r.ID], "tick %d reservation %s", i, r.ID)
			}
		}
	}
	assert.Greater(t, e.fleet.Completed, 0)
	assert.Equal(t, 1500, e.Tick())
}

func TestOracleOutageIsFatal(t *testing.T) {
	n := gridNetwork(t)
	e := newEngine(t, Config{Seed: 10, NumTaxis: 1, NumReservations: 1}, n, Deps{})
	require.NoError(t, n.Close())

	err := e.Step(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, oracle.ErrOracleUnavailable))
}

func TestRunStopsOnOutageAndTearsDown(t *testing.T) {
	n := gridNetwork(t)
	e := newEngine(t, Config{Seed: 11, NumTaxis: 1, NumReservations: 1}, n, Deps{})
	sub := e.Bus().Subscribe()
	require.NoError(t, n.Close())

	err := e.Run(context.Background())
	assert.ErrorIs(t, err, oracle.ErrOracleUnavailable)
	for range sub {
	}
	assert.Zero(t, e.Bus().Subscribers())
}

func TestRunHonorsDuration(t *testing.T) {
	e := newEngine(t, Config{Seed: 12, NumTaxis: 2, NumReservations: 4, Duration: 30}, gridNetwork(t), Deps{})
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 30.0, e.Now())
	assert.Equal(t, 30, e.Tick())
	snap, ok := e.Reports().Latest()
	require.True(t, ok)
	assert.Equal(t, 30, snap.Tick)
}

func TestRunStopsWhenCanceled(t *testing.T) {
	e := newEngine(t, Config{Seed: 13, NumTaxis: 1, NumReservations: 1}, gridNetwork(t), Deps{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, e.Run(ctx))
	assert.Zero(t, e.Tick())
}

func TestRemovedTaxiKeepsFleetEconomics(t *testing.T) {
	e := newEngine(t, Config{Seed: 14, NumTaxis: 2, NumReservations: 1}, gridNetwork(t), Deps{Dispatcher: idleDispatcher{}})
	tx := e.fleet.Taxis.Sorted()[0]
	tx.Ledger.Trips = append(tx.Ledger.Trips, model.TripRecord{ReservationID: "res00042", Distance: 5000, Demand: 1.2, TODRate: 2})
	before := e.Snapshot().Economics.Total
	require.Greater(t, before.Earnings, 0.0)

	e.Queue().Push(command.RemoveTaxis{Count: 1}, "test")
	require.NoError(t, e.Step(context.Background()))

	require.Equal(t, 1, e.LastResults()[0].Applied)
	_, err := e.fleet.Taxis.Get(tx.ID)
	require.Error(t, err)
	after := e.Snapshot().Economics
	assert.InDelta(t, before.Earnings, after.Total.Earnings, 1e-9)
	assert.InDelta(t, before.Profit, after.Total.Profit, 1e-9)
	assert.Equal(t, 1, after.Total.Trips)
	assert.InDelta(t, before.Earnings/2, after.Average.Earnings, 1e-9)
}

func TestStrandedTaxiLeavesService(t *testing.T) {
	n := gridNetwork(t)
	o := &edgeBlocker{Network: n, blocked: map[string]bool{}}
	log := &memLog{}
	e := newEngine(t, Config{Seed: 15, NumTaxis: 2, NumReservations: 1, ReportEvery: 1}, o, Deps{TripLog: log})
	ctx := context.Background()
	taxis := e.fleet.Taxis.Sorted()
	free, stuck := taxis[0], taxis[1]

	freePos, err := n.Position(free.ID)
	require.NoError(t, err)
	locs, err := n.ValidLocations()
	require.NoError(t, err)
	var trap model.Location
	for _, l := range locs {
		if l.Edge != freePos.Edge {
			trap = l
			break
		}
	}
	require.NoError(t, n.Halt(free.ID))
	require.NoError(t, n.Remove(stuck.ID))
	require.NoError(t, n.Spawn(stuck.ID, trap))
	o.blocked[trap.Edge] = true
	r := e.fleet.Reservations.Sorted()[0]
	r.Activate(e.Now())

	require.NoError(t, e.Step(ctx))

	assert.Equal(t, model.TaxiOutOfCommission, stuck.State)
	assert.Equal(t, model.OutStranded, stuck.OutReason)
	assert.Equal(t, e.Now()+e.cfg.Cooldown, stuck.ReturnAt)
	assert.Empty(t, stuck.Ledger.Tows)
	assert.Equal(t, free.ID, r.TaxiID)
	assert.NotEqual(t, model.TaxiOutOfCommission, free.State)

	stranded, err := log.Query(ctx, triplog.Query{Kind: triplog.KindStranded})
	require.NoError(t, err)
	require.Len(t, stranded, 1)
	assert.Equal(t, stuck.ID, stranded[0].TaxiID)
	tows, err := log.Query(ctx, triplog.Query{Kind: triplog.KindTow})
	require.NoError(t, err)
	assert.Empty(t, tows)
}

func TestBatteryExhaustedBeforePickup(t *testing.T) {
	n := gridNetwork(t)
	e := newEngine(t, Config{Seed: 16, NumTaxis: 1, NumReservations: 1}, n, Deps{Dispatcher: idleDispatcher{}})
	ctx := context.Background()
	tx := e.fleet.Taxis.Sorted()[0]
	r := e.fleet.Reservations.Sorted()[0]
	r.Activate(e.Now())

	pos, err := n.Position(tx.ID)
	require.NoError(t, err)
	pickup := model.Location{Edge: "j2_1>j2_2", Offset: 50}
	if pos.Edge == pickup.Edge {
		pickup.Edge = "j0_0>j1_0"
	}
	r.Pickup = pickup
	rt, err := n.FindRoute(ctx, pos, pickup)
	require.NoError(t, err)
	require.NoError(t, n.Drive(tx.ID, rt, pickup))
	require.NoError(t, r.Assign(tx.ID))
	tx.Dispatch(r.ID, pickup)
	tx.Battery.Level = 0.001

	require.NoError(t, e.Step(ctx))

	assert.Equal(t, model.ReservationWaiting, r.State)
	assert.Empty(t, r.TaxiID)
	assert.Equal(t, pickup, r.Pickup)
	assert.False(t, r.Resumed)
	assert.Equal(t, model.TaxiOutOfCommission, tx.State)
	assert.Equal(t, model.OutTowed, tx.OutReason)
	assert.Empty(t, tx.ReservationID)
	assert.Len(t, tx.Ledger.Tows, 1)
}

func TestCooldownReturnRefillsBattery(t *testing.T) {
	e := newEngine(t, Config{Seed: 17, NumTaxis: 1, NumReservations: 1, Cooldown: 3}, gridNetwork(t), Deps{Dispatcher: idleDispatcher{}})
	ctx := context.Background()
	tx := e.fleet.Taxis.Sorted()[0]
	tx.Battery.Level = 0
	tx.Retire(model.OutTowed, e.Now()+e.cfg.Cooldown)

	for i := 0; i < 2; i++ {
		require.NoError(t, e.Step(ctx))
		require.Equal(t, model.TaxiOutOfCommission, tx.State, "tick %d", i)
		require.Zero(t, tx.Battery.Level)
	}
	require.NoError(t, e.Step(ctx))

	assert.Equal(t, model.TaxiIdle, tx.State)
	assert.Equal(t, tx.Battery.Capacity, tx.Battery.Level)
	assert.Empty(t, tx.OutReason)
	assert.Zero(t, tx.ReturnAt)
}

func TestChargerArrival(t *testing.T) {
	sites := []model.Location{{Edge: "j0_0>j0_1", Offset: 10}, {Edge: "j2_1>j2_2", Offset: 40}}
	tests := []struct {
		name        string
		closeTarget bool
		closeAll    bool
	}{
		{name: "charges at target"},
		{name: "redirected when target closes", closeTarget: true},
		{name: "idle when every charger closes", closeAll: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := gridNetwork(t)
			log := &memLog{}
			e := newEngine(t, Config{Seed: 18, NumTaxis: 1, NumReservations: 1, NumChargers: 2, ReportEvery: 1}, n, Deps{
				Dispatcher:   idleDispatcher{},
				Charging:     chargeBelowFull{},
				TripLog:      log,
				ChargerSites: sites,
			})
			ctx := context.Background()
			tx := e.fleet.Taxis.Sorted()[0]
			tx.Battery.Level = tx.Battery.Capacity / 2

			require.NoError(t, e.Step(ctx))
			require.Equal(t, model.TaxiEnRouteToCharge, tx.State)
			target, err := e.fleet.Chargers.Get(tx.ChargerID)
			require.NoError(t, err)
			want := target
			switch {
			case tt.closeAll:
				for _, ch := range e.fleet.Chargers.All() {
					ch.Active = false
				}
			case tt.closeTarget:
				target.Active = false
				active := e.fleet.Chargers.Active()
				require.Len(t, active, 1)
				want = active[0]
			}

			for i := 0; i < 500 && tx.State == model.TaxiEnRouteToCharge; i++ {
				require.NoError(t, e.Step(ctx))
			}
			require.Equal(t, model.TaxiIdle, tx.State)
			assert.Empty(t, tx.ChargerID)

			charges, err := log.Query(ctx, triplog.Query{Kind: triplog.KindCharge})
			require.NoError(t, err)
			if tt.closeAll {
				assert.Empty(t, tx.Ledger.Charges)
				assert.Empty(t, charges)
				return
			}
			require.Len(t, tx.Ledger.Charges, 1)
			entry := tx.Ledger.Charges[0]
			assert.Greater(t, entry.Energy, 0.0)
			assert.Equal(t, tx.Battery.Capacity, tx.Battery.Level)
			require.Len(t, charges, 1)
			assert.Equal(t, tx.ID, charges[0].TaxiID)
			assert.InDelta(t, entry.Energy, charges[0].Energy, 1e-9)
			assert.InDelta(t, e.tariff.ChargeFee+entry.EnergyCost, charges[0].Amount, 1e-9)

			pos, err := n.Position(tx.ID)
			require.NoError(t, err)
			assert.Equal(t, want.Location, pos)
		})
	}
}

func TestRunTearsDownWhenInitFails(t *testing.T) {
	n := gridNetwork(t)
	o := &closeCounter{Network: n}
	e := buildEngine(t, Config{Seed: 19, NumTaxis: 1, NumReservations: 1}, o, Deps{})
	sub := e.Bus().Subscribe()
	require.NoError(t, n.Close())

	err := e.Run(context.Background())

	assert.ErrorIs(t, err, oracle.ErrOracleUnavailable)
	assert.Equal(t, 1, o.closes)
	for range sub {
	}
	_, ok := e.Reports().Latest()
	assert.True(t, ok)
}
