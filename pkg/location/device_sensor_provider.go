package location

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/tarm/serial"
)

// DeviceSensorProvider is responsible for retrieving coordinates from a GPS device connected via serial port.
type DeviceSensorProvider struct {
	port     string // Serial port to which the GPS device is connected
	baudRate int    // Baud rate for the serial communication

	open func(c *serial.Config) (io.ReadCloser, error)
}

// NewDeviceSensorProvider creates a new instance of DeviceSensorProvider with the specified port and baud rate.
func NewDeviceSensorProvider(port string, baudRate int) *DeviceSensorProvider {
	return &DeviceSensorProvider{
		port:     port,
		baudRate: baudRate,
		open: func(c *serial.Config) (io.ReadCloser, error) {
			return serial.OpenPort(c)
		},
	}
}

// GetCoordinates reads NMEA sentences until a GGA sentence with a valid fix arrives
// or ctx is done.
func (d *DeviceSensorProvider) GetCoordinates(ctx context.Context) (Coordinates, error) {
	s, err := d.open(&serial.Config{Name: d.port, Baud: d.baudRate, ReadTimeout: time.Second})
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: open gps port %s: %v", ErrUnavailable, d.port, err)
	}

	type result struct {
		coords Coordinates
		err    error
	}
	done := make(chan result, 1)

	go func() {
		c, err := readFix(s)
		done <- result{coords: c, err: err}
	}()

	select {
	case r := <-done:
		s.Close()
		return r.coords, r.err
	case <-ctx.Done():
		// Closing the port unblocks the reader goroutine.
		s.Close()
		return Coordinates{}, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}
}

// readFix scans r for the first GGA sentence that carries a position fix.
func readFix(r io.Reader) (Coordinates, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "$") || !strings.Contains(line, "GGA,") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			continue // Corrupt sentences are common while the receiver warms up
		}

		gga, ok := sentence.(nmea.GGA)
		if !ok || gga.FixQuality == nmea.Invalid {
			continue
		}

		c := Coordinates{Latitude: gga.Latitude, Longitude: gga.Longitude}
		if !c.Valid() {
			continue
		}
		return c, nil
	}

	if err := scanner.Err(); err != nil {
		return Coordinates{}, fmt.Errorf("%w: read gps: %v", ErrUnavailable, err)
	}

	return Coordinates{}, fmt.Errorf("%w: no valid GPS fix found", ErrUnavailable)
}
