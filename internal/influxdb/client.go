package influxdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"controlling_poolspa/internal/config"
	"controlling_poolspa/internal/logger"
	"controlling_poolspa/internal/models"
)

var (
	ErrDisabled         = errors.New("influxdb disabled")
	ErrConnectionFailed = errors.New("influxdb connection failed")
)

const (
	connectTimeout = 10 * time.Second
	batchSize      = 50
	flushInterval  = 10_000 // milliseconds

	measurement = "water_temperature"
)

// Client writes temperature history points. Writes are batched and never
// block the caller; failures arrive asynchronously and are logged.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	log      *logger.Logger
}

func Connect(cfg config.InfluxDBConfig, log *logger.Logger) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().SetBatchSize(batchSize).SetFlushInterval(flushInterval))

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	c := &Client{client: client, writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket), log: log}
	go c.drainErrors(c.writeAPI.Errors())
	log.Infow("influxdb_connected", "url", cfg.URL, "bucket", cfg.Bucket)
	return c, nil
}

func (c *Client) drainErrors(errs <-chan error) {
	for err := range errs {
		c.log.Warnw("influxdb_write_failed", "err", err)
	}
}

// WriteSample queues one history point.
func (c *Client) WriteSample(s models.TempSample) {
	c.writeAPI.WritePoint(samplePoint(s))
}

func samplePoint(s models.TempSample) *write.Point {
	fields := map[string]interface{}{
		"water_f":   s.WaterF,
		"heater_on": s.HeaterOn,
	}
	if s.SetpointF > 0 {
		fields["setpoint_f"] = s.SetpointF
	}
	return write.NewPoint(measurement, map[string]string{"mode": s.Mode}, fields, s.TakenAt)
}

// Close flushes pending points and closes the client.
func (c *Client) Close() {
	c.writeAPI.Flush()
	c.client.Close()
}
