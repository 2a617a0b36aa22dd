package metrics

import (
	"context"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/samber/lo"

	coremetrics "github.com/kilianp07/robotaxi/core/metrics"
	"github.com/kilianp07/robotaxi/infra/logger"
)

// InfluxSink writes fleet events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func (s *InfluxSink) write(points ...*write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordTick writes one fleet_tick point carrying state counts as fields.
func (s *InfluxSink) RecordTick(ev coremetrics.TickEvent) error {
	p := write.NewPointWithMeasurement("fleet_tick").
		AddTag("component", "engine").
		AddField("tick", ev.Tick).
		AddField("sim_time", round3(ev.SimTime)).
		AddField("active_chargers", ev.ActiveChargers).
		AddField("demand", round3(ev.Demand)).
		AddField("tod_rate", round3(ev.TODRate)).
		AddField("price", round3(ev.Price)).
		AddField("queue_depth", ev.QueueDepth)
	for _, state := range sortedKeys(ev.TaxisByState) {
		p.AddField("taxis_"+state, ev.TaxisByState[state])
	}
	for _, state := range sortedKeys(ev.ReservationsByState) {
		p.AddField("reservations_"+state, ev.ReservationsByState[state])
	}
	return s.write(p.SetTime(ev.Time))
}

// RecordTrip writes a completed trip.
func (s *InfluxSink) RecordTrip(ev coremetrics.TripEvent) error {
	p := write.NewPointWithMeasurement("trip_completed").
		AddTag("taxi_id", ev.TaxiID).
		AddTag("reservation_id", ev.ReservationID).
		AddField("distance_m", round3(ev.Distance)).
		AddField("earnings", round3(ev.Earnings)).
		AddField("wait_s", round3(ev.Wait)).
		AddField("sim_time", round3(ev.SimTime)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordEnergy writes a charging or tow cost entry.
func (s *InfluxSink) RecordEnergy(ev coremetrics.EnergyEvent) error {
	p := write.NewPointWithMeasurement("energy_event").
		AddTag("taxi_id", ev.TaxiID).
		AddTag("kind", ev.Kind).
		AddField("energy_kwh", round3(ev.Energy)).
		AddField("cost", round3(ev.Cost)).
		AddField("sim_time", round3(ev.SimTime)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordTaxiSnapshots writes one taxi_state point per taxi in a single batch.
func (s *InfluxSink) RecordTaxiSnapshots(snaps []coremetrics.TaxiSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	points := make([]*write.Point, 0, len(snaps))
	for _, t := range snaps {
		points = append(points, write.NewPointWithMeasurement("taxi_state").
			AddTag("taxi_id", t.TaxiID).
			AddTag("state", t.State).
			AddField("battery_pct", round3(t.BatteryPct)).
			AddField("distance_km", round3(t.DistanceKm)).
			AddField("energy_kwh", round3(t.EnergyKWh)).
			AddField("sim_time", round3(t.SimTime)).
			SetTime(t.Time))
	}
	return s.write(points...)
}

// RecordCommand writes the outcome of a structural command.
func (s *InfluxSink) RecordCommand(ev coremetrics.CommandEvent) error {
	p := write.NewPointWithMeasurement("command_applied").
		AddTag("command_id", ev.ID).
		AddTag("kind", ev.Kind).
		AddTag("underfulfilled", strconv.FormatBool(ev.Applied < ev.Requested)).
		AddField("requested", ev.Requested).
		AddField("applied", ev.Applied).
		SetTime(ev.Time)
	return s.write(p)
}

func sortedKeys(m map[string]int) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
