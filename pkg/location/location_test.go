package location

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarm/serial"
	"googlemaps.github.io/maps"
)

// nmeaSentence wraps body with the leading '$' and its XOR checksum.
func nmeaSentence(body string) string {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X", body, sum)
}

func TestReadFix_SkipsInvalidAndReturnsFirstFix(t *testing.T) {
	input := strings.Join([]string{
		"garbage line",
		nmeaSentence("GPGGA,123518,4807.038,N,01131.000,E,0,00,,,M,,M,,"),
		nmeaSentence("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W"),
		nmeaSentence("GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"),
	}, "\r\n")

	c, err := readFix(strings.NewReader(input))
	require.NoError(t, err)
	assert.InDelta(t, 48.1173, c.Latitude, 0.0001)
	assert.InDelta(t, 11.5167, c.Longitude, 0.0001)
}

func TestReadFix_NoFix(t *testing.T) {
	_, err := readFix(strings.NewReader("nothing useful\n"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

type blockingReader struct {
	closed chan struct{}
}

func (b *blockingReader) Read(p []byte) (int, error) {
	<-b.closed
	return 0, io.EOF
}

func (b *blockingReader) Close() error {
	select {
	case <-b.closed:
	default:
		close(b.closed)
	}
	return nil
}

func TestDeviceSensorProvider_TimesOut(t *testing.T) {
	p := NewDeviceSensorProvider("/dev/ttyUSB0", 9600)
	p.open = func(*serial.Config) (io.ReadCloser, error) {
		return &blockingReader{closed: make(chan struct{})}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.GetCoordinates(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDeviceSensorProvider_OpenFails(t *testing.T) {
	p := NewDeviceSensorProvider("/dev/missing", 9600)
	p.open = func(*serial.Config) (io.ReadCloser, error) {
		return nil, errors.New("no such device")
	}

	_, err := p.GetCoordinates(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDeviceSensorProvider_ReadsFix(t *testing.T) {
	p := NewDeviceSensorProvider("/dev/ttyUSB0", 9600)
	p.open = func(*serial.Config) (io.ReadCloser, error) {
		line := nmeaSentence("GNGGA,123519,5230.666,N,01326.394,E,1,08,0.9,40.0,M,46.9,M,,") + "\r\n"
		return io.NopCloser(strings.NewReader(line)), nil
	}

	c, err := p.GetCoordinates(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 52.5111, c.Latitude, 0.0001)
	assert.InDelta(t, 13.4399, c.Longitude, 0.0001)
}

func TestParseNmcliWiFi(t *testing.T) {
	out := "AA\\:BB\\:CC\\:DD\\:EE\\:FF:72\n" +
		"00\\:14\\:22\\:01\\:23\\:45:40\n" +
		"not-a-mac:10\n" +
		"11\\:22\\:33\\:44\\:55\\:66:weak\n"

	aps, err := parseNmcliWiFi(out)
	require.NoError(t, err)
	require.Len(t, aps, 2)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", aps[0].MACAddress)
	assert.Equal(t, 72.0, aps[0].SignalStrength)
	assert.Equal(t, "00:14:22:01:23:45", aps[1].MACAddress)
}

func TestParseMmcliCell(t *testing.T) {
	out := "modem.3gpp.mcc : 262\nmodem.3gpp.mnc : 01\nmodem.3gpp.lac : 1A2B\nmodem.3gpp.cid : 00FF\n"
	towers, err := parseMmcliCell(out)
	require.NoError(t, err)
	require.Len(t, towers, 1)
	assert.Equal(t, 262, towers[0].MobileCountryCode)
	assert.Equal(t, 1, towers[0].MobileNetworkCode)
	assert.Equal(t, 0x1A2B, towers[0].LocationAreaCode)
	assert.Equal(t, 0xFF, towers[0].CellID)

	_, err = parseMmcliCell("modem.3gpp.lac : 1A2B\n")
	assert.Error(t, err)
}

func TestGazetteerGeocoder(t *testing.T) {
	g := NewGazetteerGeocoder(nil, 50)

	place, err := g.ReverseGeocode(context.Background(), Coordinates{Latitude: 52.5111, Longitude: 13.4399})
	require.NoError(t, err)
	assert.Equal(t, Place{City: "Berlin", Country: "Germany"}, place)

	place, err = g.ReverseGeocode(context.Background(), Coordinates{Latitude: 40.73, Longitude: -73.99})
	require.NoError(t, err)
	assert.Equal(t, "New York", place.City)

	// Middle of the Atlantic.
	_, err = g.ReverseGeocode(context.Background(), Coordinates{Latitude: 30, Longitude: -40})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestIPAPIProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","country":"Germany","city":"Berlin"}`))
	}))
	defer srv.Close()

	p := NewIPAPIProvider(srv.URL, time.Second)
	place, err := p.LocateIP(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Place{City: "Berlin", Country: "Germany"}, place)
}

func TestIPAPIProvider_Failures(t *testing.T) {
	fail := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"fail","message":"private range"}`))
	}))
	defer fail.Close()

	_, err := NewIPAPIProvider(fail.URL, time.Second).LocateIP(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	_, err = NewIPAPIProvider(down.URL, time.Second).LocateIP(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider(Place{City: "Berlin", Country: "Germany"}, 0)

	place, err := p.LocateIP(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Berlin", place.City)

	_, err = p.GetCoordinates(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)

	slow := &StaticProvider{Delay: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = slow.ReverseGeocode(ctx, Coordinates{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

type fakeMaps struct {
	geolocate *maps.GeolocationResult
	geocode   []maps.GeocodingResult
	err       error
}

func (f *fakeMaps) Geolocate(context.Context, *maps.GeolocationRequest) (*maps.GeolocationResult, error) {
	return f.geolocate, f.err
}

func (f *fakeMaps) ReverseGeocode(context.Context, *maps.GeocodingRequest) ([]maps.GeocodingResult, error) {
	return f.geocode, f.err
}

func TestGoogleGeolocationProvider(t *testing.T) {
	fake := &fakeMaps{
		geolocate: &maps.GeolocationResult{Location: maps.LatLng{Lat: 52.5, Lng: 13.4}, Accuracy: 30},
		geocode: []maps.GeocodingResult{{
			AddressComponents: []maps.AddressComponent{
				{LongName: "Berlin", Types: []string{"locality", "political"}},
				{LongName: "Germany", ShortName: "DE", Types: []string{"country", "political"}},
			},
		}},
	}
	g := &GoogleGeolocationProvider{client: fake}

	c, err := g.GetCoordinates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Coordinates{Latitude: 52.5, Longitude: 13.4}, c)

	place, err := g.ReverseGeocode(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, Place{City: "Berlin", Country: "Germany"}, place)

	fake.err = errors.New("OVER_QUERY_LIMIT")
	_, err = g.ReverseGeocode(context.Background(), c)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDistanceBetween(t *testing.T) {
	berghain := Coordinates{Latitude: 52.5111, Longitude: 13.4399}
	watergate := Coordinates{Latitude: 52.5031, Longitude: 13.4416}

	assert.InDelta(t, 0.9, DistanceBetween(berghain, watergate), 0.05)
	assert.Equal(t, DistanceBetween(berghain, watergate), DistanceBetween(watergate, berghain))
	assert.Equal(t, 0.0, DistanceBetween(berghain, berghain))
}
